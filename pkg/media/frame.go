// Package media defines the timing, frame, stream and queue types shared by
// the decode pipeline and its consumers.
package media

import "image"

// Frame is a decoded frame with its presentation time.
// Frames are immutable once pushed to a queue.
type Frame[T any] struct {
	Timestamp Timestamp
	Data      T
}

// VideoFrame is a decoded picture.
type VideoFrame = Frame[image.Image]

// AudioFrame is a block of decoded samples.
type AudioFrame = Frame[*AudioData]

// SampleFormat identifies the layout of decoded audio samples.
type SampleFormat string

const (
	SampleS16LE SampleFormat = "s16le"
	SampleS16BE SampleFormat = "s16be"
	SampleF32LE SampleFormat = "f32le"
	SampleF32BE SampleFormat = "f32be"
)

// BytesPerSample returns the size of one sample of one channel.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleS16LE, SampleS16BE:
		return 2
	case SampleF32LE, SampleF32BE:
		return 4
	default:
		return 0
	}
}

// AudioData holds interleaved decoded samples.
type AudioData struct {
	Format     SampleFormat
	Channels   int
	SampleRate int
	Data       []byte
}

// SampleCount returns the number of sample frames (samples per channel).
func (a *AudioData) SampleCount() int {
	if a == nil || a.Channels <= 0 {
		return 0
	}
	size := a.Format.BytesPerSample()
	if size == 0 {
		return 0
	}
	return len(a.Data) / (size * a.Channels)
}
