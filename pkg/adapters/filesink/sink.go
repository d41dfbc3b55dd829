// Package filesink provides a file-based frame sink implementation.
package filesink

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// Sink saves output to files under a base directory.
type Sink struct {
	baseDir string
	fs      ports.FileSystem
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem) *Sink {
	return &Sink{
		baseDir: baseDir,
		fs:      fs,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

type streamDoc struct {
	Kind       string `yaml:"kind"`
	Codec      string `yaml:"codec"`
	Width      int    `yaml:"width,omitempty"`
	Height     int    `yaml:"height,omitempty"`
	Channels   int    `yaml:"channels,omitempty"`
	SampleRate int    `yaml:"sample_rate,omitempty"`
	TimeBase   string `yaml:"time_base"`
}

type infoDoc struct {
	Path     string      `yaml:"path"`
	Plugin   string      `yaml:"plugin"`
	Duration float64     `yaml:"duration_seconds"`
	Speed    string      `yaml:"speed,omitempty"`
	Streams  []streamDoc `yaml:"streams"`
}

// SaveInfo saves the stream description as info.yaml.
func (s *Sink) SaveInfo(info media.Info) error {
	doc := infoDoc{
		Path:     info.Path,
		Plugin:   info.Plugin,
		Duration: info.Duration.Seconds(),
	}
	if !info.Speed.IsZero() {
		doc.Speed = info.Speed.String()
	}
	for _, v := range info.Video {
		doc.Streams = append(doc.Streams, streamDoc{
			Kind:     media.StreamVideo.String(),
			Codec:    v.Codec,
			Width:    v.Width,
			Height:   v.Height,
			TimeBase: v.TimeBase.String(),
		})
	}
	for _, a := range info.Audio {
		doc.Streams = append(doc.Streams, streamDoc{
			Kind:       media.StreamAudio.String(),
			Codec:      a.Codec,
			Channels:   a.Channels,
			SampleRate: a.SampleRate,
			TimeBase:   a.TimeBase.String(),
		})
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode info: %w", err)
	}
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "info.yaml"), data)
}

// SaveFrame saves a presented frame as frames/frame-NNNN.png.
func (s *Sink) SaveFrame(index int, frame media.VideoFrame) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := encodePNG(frame.Data)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", index, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%04d.png", index))
	return s.fs.WriteFile(path, data)
}

// SaveImage saves img as name.png.
func (s *Sink) SaveImage(name string, img image.Image) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	data, err := encodePNG(img)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, name+".png"), data)
}

func encodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("no image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
