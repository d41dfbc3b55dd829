// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// CorruptData marks a unit that the mock Decoder refuses to decode.
var CorruptData = []byte("bad")

// VideoUnits returns n video units at fps frames per second with a keyframe
// every keyint units. Unit data is "frame-<index>".
func VideoUnits(n int, fps int64, keyint int) []media.Unit {
	base := media.NewRational(1, fps)
	units := make([]media.Unit, n)
	for i := range units {
		units[i] = media.Unit{
			Kind:      media.StreamVideo,
			Timestamp: media.NewTimestamp(int64(i), base),
			Duration:  1,
			Keyframe:  keyint <= 1 || i%keyint == 0,
			Data:      []byte(fmt.Sprintf("frame-%d", i)),
		}
	}
	return units
}

// VideoInfo returns an Info with one video stream matching VideoUnits.
func VideoInfo(n int, fps int64) media.Info {
	base := media.NewRational(1, fps)
	return media.Info{
		Path:     "mock://video",
		Plugin:   "mock",
		Video:    []media.VideoInfo{{Codec: "mock", Width: 4, Height: 4, TimeBase: base}},
		Duration: media.NewTimestamp(int64(n), base),
		Speed:    media.NewRational(fps, 1),
	}
}

// Demuxer is a mock implementation of ports.Demuxer that replays a fixed
// list of units.
type Demuxer struct {
	mu       sync.Mutex
	info     media.Info
	units    []media.Unit
	pos      int
	seeks    []media.Timestamp
	closed   bool
	unitErrs map[int]error

	ReadUnitFunc     func() (media.Unit, error)
	SeekKeyframeFunc func(t media.Timestamp) error
}

// NewDemuxer creates a mock demuxer over units.
func NewDemuxer(info media.Info, units []media.Unit) *Demuxer {
	return &Demuxer{info: info, units: units, unitErrs: make(map[int]error)}
}

// FailUnit makes reading the unit at index return err instead.
func (m *Demuxer) FailUnit(index int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unitErrs[index] = err
}

func (m *Demuxer) Info() media.Info {
	return m.info
}

func (m *Demuxer) ReadUnit() (media.Unit, error) {
	if m.ReadUnitFunc != nil {
		return m.ReadUnitFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.units) {
		return media.Unit{}, io.EOF
	}
	i := m.pos
	m.pos++
	if err, ok := m.unitErrs[i]; ok {
		return media.Unit{}, err
	}
	return m.units[i], nil
}

func (m *Demuxer) SeekKeyframe(t media.Timestamp) error {
	if m.SeekKeyframeFunc != nil {
		return m.SeekKeyframeFunc(t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, t)
	pos := 0
	for i, u := range m.units {
		if u.Timestamp.After(t) {
			break
		}
		if u.Keyframe {
			pos = i
		}
	}
	if len(m.units) > 0 && t.After(m.units[len(m.units)-1].Timestamp) {
		pos = len(m.units)
	}
	m.pos = pos
	return nil
}

func (m *Demuxer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Seeks returns the seek targets received so far (for test verification).
func (m *Demuxer) Seeks() []media.Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]media.Timestamp(nil), m.seeks...)
}

// Closed reports whether Close was called (for test verification).
func (m *Demuxer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Decoder is a mock implementation of ports.Decoder. Units carrying
// CorruptData fail to decode; everything else yields a 4x4 gray image or a
// short block of silence.
type Decoder struct {
	mu      sync.Mutex
	decoded int
	flushes int

	DecodeVideoFunc func(unit media.Unit) (image.Image, error)
	DecodeAudioFunc func(unit media.Unit) (*media.AudioData, error)
}

// ErrCorruptUnit is returned for units carrying CorruptData.
var ErrCorruptUnit = errors.New("mock: corrupt unit")

func (m *Decoder) DecodeVideo(unit media.Unit) (image.Image, error) {
	if m.DecodeVideoFunc != nil {
		return m.DecodeVideoFunc(unit)
	}
	if string(unit.Data) == string(CorruptData) {
		return nil, ErrCorruptUnit
	}
	m.mu.Lock()
	m.decoded++
	m.mu.Unlock()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(0, 0, color.Gray{Y: uint8(unit.Timestamp.Value)})
	return img, nil
}

func (m *Decoder) DecodeAudio(unit media.Unit) (*media.AudioData, error) {
	if m.DecodeAudioFunc != nil {
		return m.DecodeAudioFunc(unit)
	}
	if string(unit.Data) == string(CorruptData) {
		return nil, ErrCorruptUnit
	}
	m.mu.Lock()
	m.decoded++
	m.mu.Unlock()
	return &media.AudioData{
		Format:     media.SampleS16LE,
		Channels:   1,
		SampleRate: 48000,
		Data:       make([]byte, 2*480),
	}, nil
}

func (m *Decoder) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
}

// Decoded returns the number of units decoded successfully.
func (m *Decoder) Decoded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decoded
}

// Flushes returns the number of Flush calls.
func (m *Decoder) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

// Source is a mock implementation of ports.Source.
type Source struct {
	Demuxer ports.Demuxer
	Decoder ports.Decoder

	OpenFunc func(ctx context.Context) (ports.Demuxer, ports.Decoder, error)
}

func (m *Source) Open(ctx context.Context) (ports.Demuxer, ports.Decoder, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx)
	}
	if m.Demuxer == nil {
		return nil, nil, errors.New("mock: no demuxer")
	}
	dec := m.Decoder
	if dec == nil {
		dec = &Decoder{}
	}
	return m.Demuxer, dec, nil
}

// Plugin is a mock implementation of ports.Plugin.
type Plugin struct {
	PluginName  string
	CanReadFunc func(path string) bool
	SourceFunc  func(path string) (ports.Source, error)
}

func (m *Plugin) Name() string {
	if m.PluginName == "" {
		return "mock"
	}
	return m.PluginName
}

func (m *Plugin) CanRead(path string) bool {
	if m.CanReadFunc != nil {
		return m.CanReadFunc(path)
	}
	return true
}

func (m *Plugin) Source(path string) (ports.Source, error) {
	if m.SourceFunc != nil {
		return m.SourceFunc(path)
	}
	return nil, fmt.Errorf("mock: no source for %s", path)
}

var (
	_ ports.Demuxer = (*Demuxer)(nil)
	_ ports.Decoder = (*Decoder)(nil)
	_ ports.Source  = (*Source)(nil)
	_ ports.Plugin  = (*Plugin)(nil)
)
