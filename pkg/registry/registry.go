// Package registry maps media paths to source plugins and opens readers for
// them. A Registry is created at startup and handed to whatever needs to
// open media; there is no process-wide plugin table.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/mediaio/pkg/avreader"
	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// Registry holds the plugins available to a program.
type Registry struct {
	mu      sync.RWMutex
	plugins []ports.Plugin
	opts    avreader.Options
	logger  ports.Logger
}

// New creates a registry with the given plugins. Plugins are consulted in
// registration order.
func New(logger ports.Logger, opts avreader.Options, plugins ...ports.Plugin) *Registry {
	r := &Registry{
		opts:   opts,
		logger: logger,
	}
	for _, p := range plugins {
		r.Register(p)
	}
	return r
}

// Register adds a plugin after the existing ones.
func (r *Registry) Register(p ports.Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, p)
	r.logger.WithComponent("registry").Debug("Registered plugin %s", p.Name())
}

// Plugin returns the first plugin that can read path.
func (r *Registry) Plugin(path string) (ports.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		if p.CanRead(path) {
			return p, true
		}
	}
	return nil, false
}

// CanRead reports whether any plugin handles path.
func (r *Registry) CanRead(path string) bool {
	_, ok := r.Plugin(path)
	return ok
}

// Names returns the plugin names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		names[i] = p.Name()
	}
	return names
}

// Open starts a reader for path. The source itself is opened on the
// reader's worker goroutine, so open failures are reported through the
// reader's info future.
func (r *Registry) Open(ctx context.Context, path string) (ports.Reader, error) {
	p, ok := r.Plugin(path)
	if !ok {
		return nil, fmt.Errorf("%w: no plugin for %s", media.ErrOpenFailed, path)
	}
	src, err := p.Source(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", media.ErrOpenFailed, p.Name(), err)
	}
	reader := avreader.New(ctx, src, r.opts, r.logger)
	r.logger.WithComponent("registry").Debug("Opening %s with %s as reader %s", path, p.Name(), reader.ID())
	return reader, nil
}

// Ensure Registry implements ports.ReaderFactory
var _ ports.ReaderFactory = (*Registry)(nil)
