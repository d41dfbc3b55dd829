// Package nullsink provides a no-op frame sink implementation.
package nullsink

import (
	"image"

	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// Sink is a no-op implementation of ports.FrameSink.
// It discards all output.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveInfo does nothing.
func (s *Sink) SaveInfo(info media.Info) error {
	return nil
}

// SaveFrame does nothing.
func (s *Sink) SaveFrame(index int, frame media.VideoFrame) error {
	return nil
}

// SaveImage does nothing.
func (s *Sink) SaveImage(name string, img image.Image) error {
	return nil
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
