package media

import (
	"errors"
	"fmt"
)

var (
	// ErrOpenFailed is returned when a source cannot be opened or has an
	// unsupported layout. It is fatal to the reader.
	ErrOpenFailed = errors.New("media: open failed")

	// ErrDecodeUnitFailed marks a single corrupt or unreadable unit.
	// The decode worker logs it and moves on to the next unit.
	ErrDecodeUnitFailed = errors.New("media: decode unit failed")

	// ErrCacheFetchFailed is returned through a cache request whose fetch failed.
	ErrCacheFetchFailed = errors.New("media: cache fetch failed")

	// ErrEmptyQueue is returned by FrameQueue.Pop when no frame is buffered.
	ErrEmptyQueue = errors.New("media: empty queue")

	// ErrEndOfQueue is returned by FrameQueue.Pop when the queue is empty and
	// finished. It wraps ErrEmptyQueue.
	ErrEndOfQueue = fmt.Errorf("%w: finished", ErrEmptyQueue)

	// ErrOutOfOrder is returned by FrameQueue.Push for a frame older than the
	// newest buffered one.
	ErrOutOfOrder = errors.New("media: frame out of order")

	// ErrReaderClosed is returned through the info future when a reader is
	// closed before its source was opened.
	ErrReaderClosed = errors.New("media: reader closed")
)
