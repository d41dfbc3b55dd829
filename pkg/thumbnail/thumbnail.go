// Package thumbnail produces scaled first-frame pictures of media files
// through a request cache.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/user/mediaio/pkg/future"
	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
	"github.com/user/mediaio/pkg/requestcache"
)

// ErrNoVideo is returned for media without a decodable video frame.
var ErrNoVideo = errors.New("thumbnail: no video frame")

// Key identifies one thumbnail.
type Key struct {
	Path string
	Size int // Longest side in pixels, 0 keeps the original size
}

// System serves thumbnails from an LRU cache, opening readers for misses.
type System struct {
	cache  *requestcache.Cache[Key, image.Image]
	logger ports.Logger
}

// New creates a thumbnail system that opens media through factory.
func New(factory ports.ReaderFactory, opts requestcache.Options, logger ports.Logger) (*System, error) {
	log := logger.WithComponent("thumbnail")
	f := &fetcher{factory: factory, logger: log}
	cache, err := requestcache.New[Key, image.Image](f, opts, logger)
	if err != nil {
		return nil, err
	}
	return &System{cache: cache, logger: log}, nil
}

// Get requests the thumbnail of path scaled to fit size.
func (s *System) Get(path string, size int) *future.Future[image.Image] {
	return s.cache.Request(Key{Path: path, Size: size})
}

// PercentageUsed returns the cache fill level.
func (s *System) PercentageUsed() float64 {
	return s.cache.PercentageUsed()
}

// Stats returns the cache counters.
func (s *System) Stats() requestcache.Stats {
	return s.cache.Stats()
}

// Close stops the fetch goroutine.
func (s *System) Close() error {
	return s.cache.Close()
}

type fetcher struct {
	factory ports.ReaderFactory
	logger  ports.Logger
}

func (f *fetcher) Fetch(ctx context.Context, key Key) (requestcache.Pending[image.Image], error) {
	reader, err := f.factory.Open(ctx, key.Path)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("Fetching thumbnail %s at %d", key.Path, key.Size)
	return &pending{key: key, reader: reader}, nil
}

// pending waits for the first video frame of a reader.
type pending struct {
	key    Key
	reader ports.Reader
}

func (p *pending) Poll() (image.Image, bool, error) {
	info, ok, err := p.reader.Info().TryGet()
	if !ok {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !info.HasVideo() {
		return nil, false, fmt.Errorf("%w: %s", ErrNoVideo, p.key.Path)
	}

	// Audio is not needed, but left queued it would pause the worker
	// before the first video frame.
	audio := p.reader.AudioQueue()
	for {
		if _, err := audio.Pop(); err != nil {
			break
		}
	}

	frame, err := p.reader.VideoQueue().Pop()
	switch {
	case err == nil:
		return Fit(frame.Data, p.key.Size), true, nil
	case errors.Is(err, media.ErrEndOfQueue):
		return nil, false, fmt.Errorf("%w: %s", ErrNoVideo, p.key.Path)
	}
	return nil, false, nil
}

func (p *pending) Close() error {
	return p.reader.Close()
}

// Fit scales img so that its longest side equals size, keeping the aspect
// ratio. A non-positive size returns img unchanged.
func Fit(img image.Image, size int) image.Image {
	b := img.Bounds()
	if size <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return img
	}
	w, h := size, size
	if b.Dx() >= b.Dy() {
		h = max(1, b.Dy()*size/b.Dx())
	} else {
		w = max(1, b.Dx()*size/b.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
