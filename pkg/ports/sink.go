package ports

import (
	"image"

	"github.com/user/mediaio/pkg/media"
)

// FrameSink abstracts output of decoded results for inspection.
type FrameSink interface {
	// Enabled returns true if output is kept.
	Enabled() bool

	// SaveInfo saves the stream description of an opened source.
	SaveInfo(info media.Info) error

	// SaveFrame saves the index-th presented video frame.
	SaveFrame(index int, frame media.VideoFrame) error

	// SaveImage saves a named image such as a thumbnail.
	SaveImage(name string, img image.Image) error
}
