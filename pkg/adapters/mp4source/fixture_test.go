package mp4source

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/mediaio/pkg/adapters/framecodec"
)

const (
	fixtureFPS       = 25
	fixtureTimescale = fixtureFPS * 1000
	fixtureRate      = 48000
	fixtureWidth     = 32
	fixtureHeight    = 24
)

type fixture struct {
	frames   int
	keyint   int
	channels int // 0 for no audio track
	codec    string
	muxed    bool // Put video and audio of a frame into one fragment
}

// build writes a fragmented MP4 with one fragment per sample, the way the
// screen recording encoder lays out its output.
func (fx fixture) build(t *testing.T) []byte {
	t.Helper()
	codec := fx.codec
	if codec == "" {
		codec = framecodec.CodecJPEG
	}

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(fixtureTimescale, "video", "und")
	vtrak := init.Moov.Traks[0]
	vtrak.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateVisualSampleEntryBox(codec, fixtureWidth, fixtureHeight, nil))
	vtrak.Tkhd.Width = mp4.Fixed32(fixtureWidth << 16)
	vtrak.Tkhd.Height = mp4.Fixed32(fixtureHeight << 16)

	if fx.channels > 0 {
		init.AddEmptyTrack(fixtureRate, "audio", "und")
		atrak := init.Moov.Traks[1]
		atrak.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateAudioSampleEntryBox("sowt", uint16(fx.channels), 16, fixtureRate, nil))
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		t.Fatalf("encode ftyp: %v", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		t.Fatalf("encode moov: %v", err)
	}

	frameDur := uint32(fixtureTimescale / fixtureFPS)
	audioDur := uint32(fixtureRate / fixtureFPS)
	seq := uint32(1)
	for i := 0; i < fx.frames; i++ {
		flags := mp4.NonSyncSampleFlags
		if fx.keyint <= 1 || i%fx.keyint == 0 {
			flags = mp4.SyncSampleFlags
		}
		data := fixtureJPEG(t, i)
		if fx.muxed && fx.channels > 0 {
			pcm := make([]byte, int(audioDur)*2*fx.channels)
			addMuxedFragment(t, &buf, seq, map[uint32]mp4.FullSample{
				1: {
					Sample:     mp4.Sample{Flags: flags, Size: uint32(len(data)), Dur: frameDur},
					DecodeTime: uint64(i) * uint64(frameDur),
					Data:       data,
				},
				2: {
					Sample:     mp4.Sample{Flags: mp4.SyncSampleFlags, Size: uint32(len(pcm)), Dur: audioDur},
					DecodeTime: uint64(i) * uint64(audioDur),
					Data:       pcm,
				},
			})
			seq++
			continue
		}
		addFragment(t, &buf, seq, 1, mp4.FullSample{
			Sample:     mp4.Sample{Flags: flags, Size: uint32(len(data)), Dur: frameDur},
			DecodeTime: uint64(i) * uint64(frameDur),
			Data:       data,
		})
		seq++

		if fx.channels > 0 {
			pcm := make([]byte, int(audioDur)*2*fx.channels)
			addFragment(t, &buf, seq, 2, mp4.FullSample{
				Sample:     mp4.Sample{Flags: mp4.SyncSampleFlags, Size: uint32(len(pcm)), Dur: audioDur},
				DecodeTime: uint64(i) * uint64(audioDur),
				Data:       pcm,
			})
			seq++
		}
	}
	return buf.Bytes()
}

func addFragment(t *testing.T, buf *bytes.Buffer, seq, trackID uint32, s mp4.FullSample) {
	t.Helper()
	frag, err := mp4.CreateFragment(seq, trackID)
	if err != nil {
		t.Fatalf("create fragment: %v", err)
	}
	frag.AddFullSample(s)
	if err := frag.Encode(buf); err != nil {
		t.Fatalf("encode fragment: %v", err)
	}
}

func addMuxedFragment(t *testing.T, buf *bytes.Buffer, seq uint32, samples map[uint32]mp4.FullSample) {
	t.Helper()
	frag, err := mp4.CreateMultiTrackFragment(seq, []uint32{1, 2})
	if err != nil {
		t.Fatalf("create fragment: %v", err)
	}
	for _, id := range []uint32{1, 2} {
		if err := frag.AddFullSampleToTrack(samples[id], id); err != nil {
			t.Fatalf("add sample to track %d: %v", id, err)
		}
	}
	if err := frag.Encode(buf); err != nil {
		t.Fatalf("encode fragment: %v", err)
	}
}

// fixtureJPEG encodes a flat frame whose red channel carries the index.
func fixtureJPEG(t *testing.T, index int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, fixtureWidth, fixtureHeight))
	c := color.RGBA{R: uint8(index * 8), G: 64, B: 64, A: 255}
	for y := 0; y < fixtureHeight; y++ {
		for x := 0; x < fixtureWidth; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
