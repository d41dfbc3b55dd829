package thumbnail

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/user/mediaio/pkg/adapters/testpattern"
	"github.com/user/mediaio/pkg/avreader"
	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/mocks"
	"github.com/user/mediaio/pkg/ports"
	"github.com/user/mediaio/pkg/registry"
	"github.com/user/mediaio/pkg/requestcache"
)

func newSystem(t *testing.T, plugins ...ports.Plugin) *System {
	t.Helper()
	log := mocks.NewLogger()
	reg := registry.New(log, avreader.DefaultOptions(), plugins...)
	opts := requestcache.DefaultOptions()
	opts.Capacity = 8
	s, err := New(reg, opts, log)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func get(t *testing.T, s *System, path string, size int) (image.Image, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Get(path, size).Wait(ctx)
}

func TestThumbnailFromTestPattern(t *testing.T) {
	s := newSystem(t, testpattern.NewPlugin(testpattern.DefaultOptions()))
	path := "testpattern://160x90@25?seconds=1&rate=0"

	img, err := get(t, s, path, 64)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 36 {
		t.Errorf("thumbnail size = %v, want 64x36", img.Bounds())
	}

	// The second request is a synchronous cache hit.
	fut := s.Get(path, 64)
	if !fut.Ready() {
		t.Error("cached thumbnail should resolve immediately")
	}
	if s.Stats().Hits != 1 || s.Stats().Fetches != 1 {
		t.Errorf("stats = %+v", s.Stats())
	}

	// A different size is a different key.
	if img, err := get(t, s, path, 32); err != nil || img.Bounds().Dx() != 32 {
		t.Errorf("size 32: %v, %v", img, err)
	}
	if s.PercentageUsed() != 25 {
		t.Errorf("PercentageUsed = %v, want 25", s.PercentageUsed())
	}
}

func TestThumbnailFailures(t *testing.T) {
	audioOnly := &mocks.Plugin{
		PluginName:  "audio",
		CanReadFunc: func(path string) bool { return path == "tone.wav" },
		SourceFunc: func(path string) (ports.Source, error) {
			info := media.Info{Audio: []media.AudioInfo{{Codec: "mock", TimeBase: media.TimeBase48kHz}}}
			units := []media.Unit{{Kind: media.StreamAudio, Timestamp: media.NewTimestamp(0, media.TimeBase48kHz), Keyframe: true}}
			return &mocks.Source{Demuxer: mocks.NewDemuxer(info, units)}, nil
		},
	}
	broken := &mocks.Plugin{
		PluginName:  "broken",
		CanReadFunc: func(path string) bool { return path == "broken.mov" },
		SourceFunc: func(path string) (ports.Source, error) {
			return &mocks.Source{OpenFunc: func(ctx context.Context) (ports.Demuxer, ports.Decoder, error) {
				return nil, nil, errors.New("truncated header")
			}}, nil
		},
	}
	s := newSystem(t, audioOnly, broken)

	tests := []struct {
		path string
		want error
	}{
		{"tone.wav", ErrNoVideo},
		{"broken.mov", media.ErrOpenFailed},
		{"unknown.xyz", media.ErrOpenFailed},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := get(t, s, tt.path, 32)
			if !errors.Is(err, media.ErrCacheFetchFailed) || !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want ErrCacheFetchFailed wrapping %v", err, tt.want)
			}
		})
	}
	if s.Stats().Failures != 3 {
		t.Errorf("failures = %d, want 3", s.Stats().Failures)
	}
}

// audioUnits returns n audio units of 10ms each.
func audioUnits(n int) []media.Unit {
	units := make([]media.Unit, n)
	for i := range units {
		units[i] = media.Unit{
			Kind:      media.StreamAudio,
			Timestamp: media.NewTimestamp(int64(i*480), media.TimeBase48kHz),
			Duration:  480,
			Keyframe:  true,
		}
	}
	return units
}

func TestThumbnailLongAudioSource(t *testing.T) {
	audioInfo := media.AudioInfo{Codec: "mock", Format: media.SampleS16LE, Channels: 1, SampleRate: 48000, TimeBase: media.TimeBase48kHz}
	audioOnly := &mocks.Plugin{
		PluginName:  "wav",
		CanReadFunc: func(path string) bool { return path == "long.wav" },
		SourceFunc: func(path string) (ports.Source, error) {
			info := media.Info{Audio: []media.AudioInfo{audioInfo}}
			return &mocks.Source{Demuxer: mocks.NewDemuxer(info, audioUnits(200))}, nil
		},
	}
	// 200 audio units are demuxed before the first video unit.
	audioFirst := &mocks.Plugin{
		PluginName:  "av",
		CanReadFunc: func(path string) bool { return path == "interview.mov" },
		SourceFunc: func(path string) (ports.Source, error) {
			info := mocks.VideoInfo(1, 25)
			info.Audio = []media.AudioInfo{audioInfo}
			units := append(audioUnits(200), mocks.VideoUnits(1, 25, 1)...)
			return &mocks.Source{Demuxer: mocks.NewDemuxer(info, units)}, nil
		},
	}
	s := newSystem(t, audioOnly, audioFirst)

	if _, err := get(t, s, "long.wav", 32); !errors.Is(err, ErrNoVideo) {
		t.Errorf("audio-only error = %v, want ErrNoVideo", err)
	}

	img, err := get(t, s, "interview.mov", 2)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Errorf("thumbnail size = %v, want 2x2", img.Bounds())
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, size int
		wantW      int
		wantH      int
	}{
		{200, 100, 50, 50, 25},
		{100, 200, 50, 25, 50},
		{64, 64, 16, 16, 16},
		{1000, 1, 10, 10, 1},
		{30, 20, 0, 30, 20},
	}
	for _, tt := range tests {
		got := Fit(image.NewRGBA(image.Rect(0, 0, tt.w, tt.h)), tt.size)
		if got.Bounds().Dx() != tt.wantW || got.Bounds().Dy() != tt.wantH {
			t.Errorf("Fit(%dx%d, %d) = %v, want %dx%d", tt.w, tt.h, tt.size, got.Bounds(), tt.wantW, tt.wantH)
		}
	}
}
