package avreader

import "time"

// Options configures queue backpressure for a reader.
//
// The worker pauses once a queue holds more than its high-water mark and
// resumes once every queue is below its low-water mark.
type Options struct {
	VideoHighWater int           // Pause when more video frames are queued (default: 16)
	VideoLowWater  int           // Resume when fewer video frames are queued (default: 8)
	AudioHighWater int           // Pause when more audio frames are queued (default: 64)
	AudioLowWater  int           // Resume when fewer audio frames are queued (default: 32)
	IdleWait       time.Duration // Poll interval while paused (default: 5ms)
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		VideoHighWater: 16,
		VideoLowWater:  8,
		AudioHighWater: 64,
		AudioLowWater:  32,
		IdleWait:       5 * time.Millisecond,
	}
}

// normalized fills unset values with defaults and keeps each low-water mark
// below its high-water mark.
func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.VideoHighWater <= 0 {
		o.VideoHighWater = d.VideoHighWater
	}
	if o.VideoLowWater <= 0 || o.VideoLowWater > o.VideoHighWater {
		o.VideoLowWater = (o.VideoHighWater + 1) / 2
	}
	if o.AudioHighWater <= 0 {
		o.AudioHighWater = d.AudioHighWater
	}
	if o.AudioLowWater <= 0 || o.AudioLowWater > o.AudioHighWater {
		o.AudioLowWater = (o.AudioHighWater + 1) / 2
	}
	if o.IdleWait <= 0 {
		o.IdleWait = d.IdleWait
	}
	return o
}
