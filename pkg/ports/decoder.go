package ports

import (
	"context"
	"image"

	"github.com/user/mediaio/pkg/media"
)

// Demuxer yields compressed units from an opened source.
type Demuxer interface {
	// Info returns the stream layout established at open time.
	Info() media.Info

	// ReadUnit returns the next unit in presentation order.
	// It returns io.EOF at the end of the source. Errors wrapping
	// media.ErrDecodeUnitFailed affect only that unit; reading may continue.
	ReadUnit() (media.Unit, error)

	// SeekKeyframe repositions the demuxer at the nearest keyframe at or
	// before t, so that the next ReadUnit starts decoding from there.
	SeekKeyframe(t media.Timestamp) error

	// Close releases the source.
	Close() error
}

// Decoder turns units into frames. Decoders hold codec state and are
// used from a single goroutine.
type Decoder interface {
	// DecodeVideo decodes a video unit. A nil image without error means the
	// decoder needs more input.
	DecodeVideo(unit media.Unit) (image.Image, error)

	// DecodeAudio decodes an audio unit. A nil result without error means the
	// decoder needs more input.
	DecodeAudio(unit media.Unit) (*media.AudioData, error)

	// Flush drops buffered codec state after a seek.
	Flush()
}

// Source opens a media path. Constructing a Source does no I/O; Open runs on
// the decode worker goroutine.
type Source interface {
	Open(ctx context.Context) (Demuxer, Decoder, error)
}

// Plugin recognizes paths it can read and produces sources for them.
type Plugin interface {
	// Name identifies the plugin in logs and info output.
	Name() string

	// CanRead reports whether the plugin handles the path.
	CanRead(path string) bool

	// Source returns an unopened source for the path.
	Source(path string) (Source, error)
}
