// Package avreader implements ports.Reader: a media handle whose decode
// worker runs on its own goroutine and fills a video and an audio queue.
package avreader

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/user/mediaio/pkg/future"
	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// Reader owns a decode worker goroutine and its two frame queues.
type Reader struct {
	id     string
	logger ports.Logger

	info  *future.Promise[media.Info]
	video *media.FrameQueue[image.Image]
	audio *media.FrameQueue[*media.AudioData]
	req   *seekRequest
	wake  chan struct{}
	state atomic.Int32

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a reader for source. The source is opened on the worker
// goroutine; New itself does not block. The worker also stops when ctx is
// cancelled.
func New(ctx context.Context, source ports.Source, opts Options, logger ports.Logger) *Reader {
	id := uuid.NewString()[:8]
	r := &Reader{
		id:     id,
		logger: logger.WithComponent("reader:" + id),
		info:   future.NewPromise[media.Info](),
		video:  media.NewFrameQueue[image.Image](),
		audio:  media.NewFrameQueue[*media.AudioData](),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	r.req = &seekRequest{video: r.video, audio: r.audio}

	w := &worker{
		source:  source,
		opts:    opts.normalized(),
		logger:  r.logger,
		promise: r.info,
		req:     r.req,
		wake:    r.wake,
		state:   &r.state,
	}

	wctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	go func() {
		defer close(r.done)
		w.run(wctx)
	}()
	return r
}

// ID returns the short identifier used in log output.
func (r *Reader) ID() string {
	return r.id
}

// Info returns a future that resolves with the stream layout.
func (r *Reader) Info() *future.Future[media.Info] {
	return r.info.Future()
}

// Seek requests a new playback position. Pending targets are replaced, and
// both queues are flushed before Seek returns. Seeks after the worker has
// stopped are ignored.
func (r *Reader) Seek(t media.Timestamp) {
	if !r.req.post(t) {
		r.logger.Debug("Ignoring seek to %s: reader stopped", t)
		return
	}
	r.signal()
}

// VideoQueue returns the decoded video frames.
func (r *Reader) VideoQueue() *media.FrameQueue[image.Image] {
	return r.video
}

// AudioQueue returns the decoded audio frames.
func (r *Reader) AudioQueue() *media.FrameQueue[*media.AudioData] {
	return r.audio
}

// State returns the worker's current state.
func (r *Reader) State() State {
	return State(r.state.Load())
}

// Done is closed once the worker goroutine has exited.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// Close stops the worker and waits for it to exit. It is safe to call more
// than once.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		r.signal()
		<-r.done
	})
	return nil
}

func (r *Reader) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Ensure Reader implements ports.Reader
var _ ports.Reader = (*Reader)(nil)
