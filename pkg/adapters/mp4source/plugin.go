// Package mp4source reads MP4 and QuickTime files with intra-only video
// (Motion JPEG, PNG, raw RGBA) and PCM audio tracks.
package mp4source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/user/mediaio/pkg/adapters/framecodec"
	"github.com/user/mediaio/pkg/ports"
)

// PluginName identifies the plugin in stream info.
const PluginName = "mp4"

var extensions = map[string]bool{
	".mp4": true,
	".m4v": true,
	".m4a": true,
	".mov": true,
	".qt":  true,
}

// Plugin recognizes MP4 family files by extension.
type Plugin struct {
	fs ports.FileSystem
}

// NewPlugin creates a plugin that opens files through fs.
func NewPlugin(fs ports.FileSystem) *Plugin {
	return &Plugin{fs: fs}
}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return PluginName
}

// CanRead reports whether path has an MP4 family extension.
func (p *Plugin) CanRead(path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// Source returns an unopened source for path.
func (p *Plugin) Source(path string) (ports.Source, error) {
	return &Source{fs: p.fs, path: path}, nil
}

// Source opens one MP4 file.
type Source struct {
	fs   ports.FileSystem
	path string
}

// Open parses the file and builds the sample index.
func (s *Source) Open(ctx context.Context) (ports.Demuxer, ports.Decoder, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	f, err := s.fs.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	demux, err := NewDemuxer(f, s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	dec, err := framecodec.New(demux.Info())
	if err != nil {
		demux.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrUnsupportedLayout, err)
	}
	return demux, dec, nil
}

var (
	_ ports.Plugin = (*Plugin)(nil)
	_ ports.Source = (*Source)(nil)
)
