package testpattern

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/user/mediaio/pkg/avreader"
	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/mocks"
)

func TestParseURL(t *testing.T) {
	d := DefaultOptions()
	tests := []struct {
		name    string
		raw     string
		check   func(o Options) bool
		wantErr bool
	}{
		{"defaults", "testpattern://", func(o Options) bool { return o == d }, false},
		{"size and fps", "testpattern://64x48@30", func(o Options) bool {
			return o.Width == 64 && o.Height == 48 && o.FPS == 30
		}, false},
		{"size only", "testpattern://64x48", func(o Options) bool {
			return o.Width == 64 && o.FPS == d.FPS
		}, false},
		{"query", "testpattern://?seconds=1.5&keyint=5&rate=0", func(o Options) bool {
			return o.Seconds == 1.5 && o.KeyInterval == 5 && o.SampleRate == 0
		}, false},
		{"tone and channels", "testpattern://?tone=1000&channels=1", func(o Options) bool {
			return o.ToneHz == 1000 && o.Channels == 1
		}, false},
		{"wrong scheme", "file://64x48", nil, true},
		{"bad size", "testpattern://64@30", nil, true},
		{"bad fps", "testpattern://64x48@fast", nil, true},
		{"zero keyint", "testpattern://?keyint=0", nil, true},
		{"bad seconds", "testpattern://?seconds=-1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := ParseURL(tt.raw, d)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", o)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURL failed: %v", err)
			}
			if !tt.check(o) {
				t.Errorf("unexpected options %+v", o)
			}
		})
	}
}

func openDemuxer(t *testing.T, o Options) *demuxer {
	t.Helper()
	src, err := NewSource(o)
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	demux, _, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return demux.(*demuxer)
}

func smallOptions() Options {
	o := DefaultOptions()
	o.Width, o.Height = 32, 24
	o.Seconds = 2
	o.KeyInterval = 10
	return o
}

func TestDemuxerUnits(t *testing.T) {
	d := openDemuxer(t, smallOptions())

	info := d.Info()
	if info.Duration.Seconds() != 2 || info.Speed != media.NewRational(25, 1) {
		t.Errorf("info duration %s, speed %s", info.Duration, info.Speed)
	}

	video, audio, keyframes, samples := 0, 0, 0, 0
	for {
		u, err := d.ReadUnit()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadUnit failed: %v", err)
		}
		if u.Kind == media.StreamVideo {
			video++
			if u.Keyframe {
				keyframes++
			}
			if len(u.Data) != 32*24*4 {
				t.Fatalf("video unit has %d bytes", len(u.Data))
			}
		} else {
			audio++
			samples += int(u.Duration)
		}
	}
	if video != 50 || audio != 50 || keyframes != 5 {
		t.Errorf("video %d, audio %d, keyframes %d; want 50, 50, 5", video, audio, keyframes)
	}
	if samples != 2*48000 {
		t.Errorf("audio samples = %d, want %d", samples, 2*48000)
	}
}

func TestDemuxerSeek(t *testing.T) {
	d := openDemuxer(t, smallOptions())

	d.SeekKeyframe(media.NewTimestamp(1300, media.TimeBaseMillis))
	u, _ := d.ReadUnit()
	if u.Kind != media.StreamVideo || u.Timestamp.Value != 30 || !u.Keyframe {
		t.Errorf("after seek got %s unit at %d", u.Kind, u.Timestamp.Value)
	}

	d.SeekKeyframe(media.NewTimestamp(10, media.NewRational(1, 1)))
	if _, err := d.ReadUnit(); !errors.Is(err, io.EOF) {
		t.Errorf("seek past end: err = %v, want EOF", err)
	}
}

func TestPaint(t *testing.T) {
	img := Paint(70, 40, 3)
	if img.Bounds().Dx() != 70 || img.Bounds().Dy() != 40 {
		t.Fatalf("size = %v", img.Bounds())
	}
	r, g, b, _ := img.At(2, 2).RGBA()
	if r>>8 != 192 || g>>8 != 192 || b>>8 != 192 {
		t.Errorf("first bar = %d,%d,%d; want gray 192", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = img.At(68, 2).RGBA()
	if r != 0 || g != 0 || b>>8 != 192 {
		t.Errorf("last bar = %d,%d,%d; want blue", r>>8, g>>8, b>>8)
	}
}

func TestPatternThroughReader(t *testing.T) {
	p := NewPlugin(DefaultOptions())
	path := "testpattern://32x24@25?seconds=1&keyint=5&rate=0"
	if !p.CanRead(path) || p.CanRead("clip.mp4") {
		t.Fatal("CanRead mismatch")
	}
	src, err := p.Source(path)
	if err != nil {
		t.Fatalf("Source failed: %v", err)
	}

	r := avreader.New(context.Background(), src, avreader.DefaultOptions(), mocks.NewLogger())
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	info, err := r.Info().Wait(ctx)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.HasAudio() {
		t.Error("rate=0 should disable audio")
	}

	frames := 0
	for ctx.Err() == nil {
		_, err := r.VideoQueue().Pop()
		if errors.Is(err, media.ErrEndOfQueue) {
			break
		}
		if err == nil {
			frames++
			continue
		}
		time.Sleep(time.Millisecond)
	}
	if frames != 25 {
		t.Errorf("got %d frames, want 25", frames)
	}
}
