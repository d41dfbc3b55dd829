// Package playback implements a presentation loop that polls a reader's
// queues on a ticker and hands due frames to callbacks.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// Options configures a Player.
type Options struct {
	Realtime  bool          // Pace delivery by the wall clock
	Rate      float64       // Playback rate in realtime mode (default: 1)
	Tick      time.Duration // Poll interval (default: 10ms)
	MaxFrames int           // Stop after this many video frames, 0 for no limit
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Rate: 1,
		Tick: 10 * time.Millisecond,
	}
}

// Stats summarizes a playback run.
type Stats struct {
	VideoFrames  int
	AudioFrames  int
	AudioSamples int
	First        media.Timestamp // First video frame delivered
	Last         media.Timestamp // Last video frame delivered
	Elapsed      time.Duration
}

// Player drives one reader.
type Player struct {
	reader ports.Reader
	opts   Options
	logger ports.Logger

	mu         sync.Mutex
	started    bool
	originTS   media.Timestamp
	originWall time.Time
}

// New creates a player for reader.
func New(reader ports.Reader, opts Options, logger ports.Logger) *Player {
	d := DefaultOptions()
	if opts.Rate <= 0 {
		opts.Rate = d.Rate
	}
	if opts.Tick <= 0 {
		opts.Tick = d.Tick
	}
	return &Player{
		reader: reader,
		opts:   opts,
		logger: logger.WithComponent("playback"),
	}
}

// Seek moves the reader to t and restarts the playback clock there.
func (p *Player) Seek(t media.Timestamp) {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()
	p.reader.Seek(t)
}

// Run delivers frames until every stream has ended, MaxFrames is reached
// or ctx is done. Callbacks run on the calling goroutine and may be nil.
func (p *Player) Run(ctx context.Context, onVideo func(media.VideoFrame), onAudio func(media.AudioFrame)) (Stats, error) {
	info, err := p.reader.Info().Wait(ctx)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	begin := time.Now()
	defer func() { stats.Elapsed = time.Since(begin) }()

	ticker := time.NewTicker(p.opts.Tick)
	defer ticker.Stop()

	limit := false
	for {
		videoDone := !info.HasVideo() || drain(p.reader.VideoQueue(), p.due, func(f media.VideoFrame) bool {
			if stats.VideoFrames == 0 {
				stats.First = f.Timestamp
			}
			stats.VideoFrames++
			stats.Last = f.Timestamp
			if onVideo != nil {
				onVideo(f)
			}
			limit = p.opts.MaxFrames > 0 && stats.VideoFrames >= p.opts.MaxFrames
			return !limit
		})
		if limit {
			p.logger.Debug("Frame limit %d reached", p.opts.MaxFrames)
			return stats, nil
		}

		audioDone := !info.HasAudio() || drain(p.reader.AudioQueue(), p.due, func(f media.AudioFrame) bool {
			stats.AudioFrames++
			stats.AudioSamples += f.Data.SampleCount()
			if onAudio != nil {
				onAudio(f)
			}
			return true
		})

		if videoDone && audioDone {
			p.logger.Debug("Playback finished: %d video, %d audio frames", stats.VideoFrames, stats.AudioFrames)
			return stats, nil
		}

		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-ticker.C:
		}
	}
}

// due reports whether a frame at t should be presented now.
func (p *Player) due(t media.Timestamp) bool {
	if !p.opts.Realtime {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if !p.started {
		p.started = true
		p.originTS = t
		p.originWall = now
	}
	ahead := t.Seconds() - p.originTS.Seconds()
	return ahead <= now.Sub(p.originWall).Seconds()*p.opts.Rate
}

// drain delivers every due frame of q. It returns true once q has ended or
// deliver asks to stop.
func drain[T any](q *media.FrameQueue[T], due func(media.Timestamp) bool, deliver func(media.Frame[T]) bool) bool {
	for {
		next, ok := q.Peek()
		if !ok {
			// Finished is terminal until Clear, so an empty finished
			// queue has ended even if a push races with this check.
			return q.IsFinished() && q.IsEmpty()
		}
		if !due(next.Timestamp) {
			return false
		}
		f, err := q.Pop()
		if err != nil {
			// Cleared by a concurrent seek.
			return false
		}
		if !deliver(f) {
			return true
		}
	}
}
