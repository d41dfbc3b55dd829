package media

import (
	"fmt"
	"sync"
)

// FrameQueue is a mutex-guarded FIFO of decoded frames with a finished flag.
//
// Push, SetFinished and Clear belong to the decode worker; Pop belongs to the
// consumer. No operation blocks: the consumer polls the queue from its own
// loop and the worker applies backpressure by watching Len.
type FrameQueue[T any] struct {
	mu       sync.Mutex
	frames   []Frame[T]
	finished bool
	last     Timestamp
	hasLast  bool
}

// NewFrameQueue creates an empty queue.
func NewFrameQueue[T any]() *FrameQueue[T] {
	return &FrameQueue[T]{}
}

// Push appends a frame. Frames must be pushed in non-decreasing timestamp
// order; an older frame is rejected with ErrOutOfOrder.
func (q *FrameQueue[T]) Push(frame Frame[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.hasLast && frame.Timestamp.Before(q.last) {
		return fmt.Errorf("%w: %s after %s", ErrOutOfOrder, frame.Timestamp, q.last)
	}
	q.frames = append(q.frames, frame)
	q.last = frame.Timestamp
	q.hasLast = true
	return nil
}

// Pop removes and returns the oldest frame.
// It returns ErrEmptyQueue when nothing is buffered, or ErrEndOfQueue when
// the queue is empty and finished.
func (q *FrameQueue[T]) Pop() (Frame[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		if q.finished {
			return Frame[T]{}, ErrEndOfQueue
		}
		return Frame[T]{}, ErrEmptyQueue
	}
	frame := q.frames[0]
	var zero Frame[T]
	q.frames[0] = zero
	q.frames = q.frames[1:]
	if len(q.frames) == 0 {
		q.frames = nil
	}
	return frame, nil
}

// Peek returns the oldest frame without removing it.
func (q *FrameQueue[T]) Peek() (Frame[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return Frame[T]{}, false
	}
	return q.frames[0], true
}

// Len returns the number of buffered frames.
func (q *FrameQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// IsEmpty reports whether no frame is buffered.
func (q *FrameQueue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// IsFinished reports whether the producer has signalled that no more frames
// will be pushed.
func (q *FrameQueue[T]) IsFinished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished
}

// SetFinished marks the queue as complete.
func (q *FrameQueue[T]) SetFinished() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = true
}

// Clear drops all buffered frames and resets the finished flag and the
// ordering watermark.
func (q *FrameQueue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frames = nil
	q.finished = false
	q.hasLast = false
	q.last = Timestamp{}
}
