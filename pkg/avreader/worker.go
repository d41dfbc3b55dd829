package avreader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/mediaio/pkg/future"
	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// State is the decode worker's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateReading
	StateSeeking
	StateDraining
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateSeeking:
		return "seeking"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// seekRequest is the mailbox between Reader.Seek and the worker.
//
// Every queue mutation that can race with a seek happens under mu: Seek
// clears the queues and raises pending, and the worker refuses to push while
// a seek is pending. A frame decoded before the seek can therefore never
// appear in a queue after Seek returns.
type seekRequest struct {
	mu      sync.Mutex
	pending bool
	target  media.Timestamp
	closed  bool

	video *media.FrameQueue[image.Image]
	audio *media.FrameQueue[*media.AudioData]
}

// post records a new target, replacing any pending one.
// It returns false once the worker has stopped.
func (s *seekRequest) post(t media.Timestamp) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.pending = true
	s.target = t
	s.video.Clear()
	s.audio.Clear()
	return true
}

// take returns the pending target, if any, and clears it.
func (s *seekRequest) take() (media.Timestamp, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending {
		return media.Timestamp{}, false
	}
	s.pending = false
	return s.target, true
}

// finish marks both queues finished and refuses further seeks.
// When force is false it does nothing while a seek is pending, so that a
// seek racing with end of source still wins.
func (s *seekRequest) finish(force bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending && !force {
		return false
	}
	s.pending = false
	s.closed = true
	s.video.SetFinished()
	s.audio.SetFinished()
	return true
}

// pushFrame appends a frame unless a seek is pending, in which case the
// frame belongs to the old position and is dropped.
func pushFrame[T any](s *seekRequest, q *media.FrameQueue[T], frame media.Frame[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return nil
	}
	return q.Push(frame)
}

// worker owns the demuxer and decoder state. It runs on its own goroutine
// and is the only producer for the reader's queues.
type worker struct {
	source  ports.Source
	opts    Options
	logger  ports.Logger
	promise *future.Promise[media.Info]
	req     *seekRequest
	wake    chan struct{}
	state   *atomic.Int32

	demux   ports.Demuxer
	decoder ports.Decoder
	info    media.Info

	paused   bool
	floor    media.Timestamp
	hasFloor bool
}

func (w *worker) setState(s State) {
	w.state.Store(int32(s))
}

// run is the worker main loop.
func (w *worker) run(ctx context.Context) {
	w.setState(StateIdle)

	demux, decoder, err := w.source.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			w.stop(media.ErrReaderClosed)
			return
		}
		w.logger.Error("Failed to open source: %v", err)
		w.stop(fmt.Errorf("%w: %w", media.ErrOpenFailed, err))
		return
	}
	defer demux.Close()

	info := demux.Info()
	if info.StreamCount() == 0 {
		w.logger.Error("Source has no video or audio streams")
		w.stop(fmt.Errorf("%w: unsupported layout: no video or audio streams", media.ErrOpenFailed))
		return
	}

	w.demux = demux
	w.decoder = decoder
	w.info = info
	w.promise.Resolve(info)
	w.logger.Debug("Opened %s: %d video, %d audio streams", info.Path, len(info.Video), len(info.Audio))

	w.setState(StateReading)
	for {
		if ctx.Err() != nil {
			w.stop(media.ErrReaderClosed)
			return
		}

		if target, ok := w.req.take(); ok {
			if err := w.seek(target); err != nil {
				w.logger.Error("Seek failed: %v", err)
				w.stop(nil)
				return
			}
			continue
		}

		if w.throttled() {
			w.idle(ctx)
			continue
		}

		unit, err := demux.ReadUnit()
		switch {
		case errors.Is(err, io.EOF):
			if w.drain() {
				return
			}
			continue
		case errors.Is(err, media.ErrDecodeUnitFailed):
			w.logger.Warn("Skipping unreadable unit: %v", err)
			continue
		case err != nil:
			w.logger.Error("Read failed: %v", err)
			w.stop(nil)
			return
		}

		w.decode(unit)
	}
}

// seek repositions the demuxer at the keyframe preceding target. Frames
// before target are decoded for reference and then dropped.
func (w *worker) seek(target media.Timestamp) error {
	w.setState(StateSeeking)
	defer w.setState(StateReading)

	clamped := w.clamp(target)
	if clamped != target {
		w.logger.Debug("Seek target %s out of range, clamped to %s", target, clamped)
	}

	w.decoder.Flush()
	if err := w.demux.SeekKeyframe(clamped); err != nil {
		return fmt.Errorf("seek to %s: %w", clamped, err)
	}

	w.floor = clamped
	w.hasFloor = true
	w.paused = false
	w.logger.Debug("Seeked to %s", clamped)
	return nil
}

// clamp limits a seek target to [start, duration].
func (w *worker) clamp(t media.Timestamp) media.Timestamp {
	start := w.info.Start()
	if t.Before(start) {
		return start.Rescale(t.Base)
	}
	if w.info.Duration.Value > 0 && t.After(w.info.Duration) {
		return w.info.Duration.Rescale(t.Base)
	}
	return t
}

// throttled applies double-threshold backpressure on queue depth.
func (w *worker) throttled() bool {
	v, a := w.req.video.Len(), w.req.audio.Len()
	if w.paused {
		if v < w.opts.VideoLowWater && a < w.opts.AudioLowWater {
			w.paused = false
		}
	} else if v > w.opts.VideoHighWater || a > w.opts.AudioHighWater {
		w.paused = true
	}
	return w.paused
}

// idle waits for a seek, stop, or the next backpressure poll.
func (w *worker) idle(ctx context.Context) {
	timer := time.NewTimer(w.opts.IdleWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.wake:
	case <-timer.C:
	}
}

func (w *worker) decode(unit media.Unit) {
	switch unit.Kind {
	case media.StreamVideo:
		img, err := w.decoder.DecodeVideo(unit)
		if err != nil {
			w.logger.Warn("Skipping corrupt %s unit at %s: %v", unit.Kind, unit.Timestamp, err)
			return
		}
		if img == nil || w.discard(unit.Timestamp) {
			return
		}
		if err := pushFrame(w.req, w.req.video, media.VideoFrame{Timestamp: unit.Timestamp, Data: img}); err != nil {
			w.logger.Warn("Dropping %s frame: %v", unit.Kind, err)
		}

	case media.StreamAudio:
		data, err := w.decoder.DecodeAudio(unit)
		if err != nil {
			w.logger.Warn("Skipping corrupt %s unit at %s: %v", unit.Kind, unit.Timestamp, err)
			return
		}
		if data == nil || w.discard(unit.Timestamp) {
			return
		}
		if err := pushFrame(w.req, w.req.audio, media.AudioFrame{Timestamp: unit.Timestamp, Data: data}); err != nil {
			w.logger.Warn("Dropping %s frame: %v", unit.Kind, err)
		}
	}
}

// discard reports whether a frame precedes the active seek target.
func (w *worker) discard(t media.Timestamp) bool {
	return w.hasFloor && t.Before(w.floor)
}

// drain handles end of source. It returns false when a seek arrived in the
// meantime and the loop must continue.
func (w *worker) drain() bool {
	w.setState(StateDraining)
	if !w.req.finish(false) {
		w.setState(StateReading)
		return false
	}
	w.logger.Debug("End of source reached")
	w.setState(StateStopped)
	return true
}

// stop finishes both queues and enters the terminal state. err, when not
// nil, fails a still-pending info future.
func (w *worker) stop(err error) {
	if err != nil {
		w.promise.Reject(err)
	}
	w.req.finish(true)
	w.setState(StateStopped)
}
