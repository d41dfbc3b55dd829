package ports

import (
	"context"
	"image"

	"github.com/user/mediaio/pkg/future"
	"github.com/user/mediaio/pkg/media"
)

// Reader is an open media handle backed by a background decode worker.
//
// Consumers poll VideoQueue and AudioQueue without blocking; decoding pace
// is bounded by the worker's backpressure, not by the consumer.
type Reader interface {
	// Info resolves once with the stream layout, or fails with
	// media.ErrOpenFailed.
	Info() *future.Future[media.Info]

	// Seek asks the worker to resume at t. It does not block. Rapid seeks
	// coalesce to the most recent target, and after Seek returns the next
	// frame dequeued is at or after t.
	Seek(t media.Timestamp)

	// VideoQueue returns the decoded video frames.
	VideoQueue() *media.FrameQueue[image.Image]

	// AudioQueue returns the decoded audio frames.
	AudioQueue() *media.FrameQueue[*media.AudioData]

	// Close stops the worker and waits for it to exit.
	Close() error
}

// ReaderFactory opens readers for paths.
type ReaderFactory interface {
	CanRead(path string) bool
	Open(ctx context.Context, path string) (Reader, error)
}
