package filesink

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/mocks"
)

// testBaseDir is a platform-independent base directory for tests
var testBaseDir = filepath.Join("dump")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem())

	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveInfo(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs)

	info := media.Info{
		Path:   "clip.mp4",
		Plugin: "mp4",
		Video:  []media.VideoInfo{{Codec: "jpeg", Width: 32, Height: 24, TimeBase: media.NewRational(1, 25000)}},
		Audio: []media.AudioInfo{{
			Codec: "sowt", Format: media.SampleS16LE, Channels: 2, SampleRate: 48000,
			TimeBase: media.NewRational(1, 48000),
		}},
		Duration: media.NewTimestamp(50000, media.NewRational(1, 25000)),
		Speed:    media.NewRational(25, 1),
	}
	if err := sink.SaveInfo(info); err != nil {
		t.Fatalf("SaveInfo failed: %v", err)
	}

	saved, ok := fs.GetFile(filepath.Join(testBaseDir, "info.yaml"))
	if !ok {
		t.Fatal("expected info.yaml to be saved")
	}
	var doc infoDoc
	if err := yaml.Unmarshal(saved, &doc); err != nil {
		t.Fatalf("info.yaml is not valid YAML: %v", err)
	}
	if doc.Plugin != "mp4" || doc.Duration != 2 || doc.Speed != "25/1" {
		t.Errorf("unexpected document %+v", doc)
	}
	if len(doc.Streams) != 2 || doc.Streams[0].Kind != "video" || doc.Streams[1].SampleRate != 48000 {
		t.Errorf("unexpected streams %+v", doc.Streams)
	}
}

func TestSink_SaveFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs)

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	frame := media.VideoFrame{Timestamp: media.NewTimestamp(3, media.NewRational(1, 25)), Data: img}
	if err := sink.SaveFrame(3, frame); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}

	saved, ok := fs.GetFile(filepath.Join(testBaseDir, "frames", "frame-0003.png"))
	if !ok {
		t.Fatal("expected frame-0003.png to be saved")
	}
	decoded, err := png.Decode(bytes.NewReader(saved))
	if err != nil {
		t.Fatalf("saved frame is not a PNG: %v", err)
	}
	if r, _, _, _ := decoded.At(1, 1).RGBA(); r>>8 != 255 {
		t.Error("expected red pixel from drawn image")
	}
	if ok, _ := fs.Exists(filepath.Join(testBaseDir, "frames")); !ok {
		t.Error("frames directory should exist")
	}
}

func TestSink_SaveImage(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs)

	if err := sink.SaveImage("clip", image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	if _, ok := fs.GetFile(filepath.Join(testBaseDir, "clip.png")); !ok {
		t.Error("expected clip.png to be saved")
	}

	if err := sink.SaveImage("empty", nil); err == nil {
		t.Error("expected error for a nil image")
	}
}

func TestSink_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	errDisk := errors.New("disk full")
	fs.WriteFileFunc = func(path string, data []byte) error { return errDisk }
	sink := New(testBaseDir, fs)

	if err := sink.SaveImage("clip", image.NewGray(image.Rect(0, 0, 1, 1))); !errors.Is(err, errDisk) {
		t.Errorf("error = %v, want %v", err, errDisk)
	}
}
