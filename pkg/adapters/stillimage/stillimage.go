// Package stillimage reads single pictures as a one-frame video stream.
package stillimage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/user/mediaio/pkg/adapters/framecodec"
	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// PluginName identifies the plugin in stream info.
const PluginName = "image"

var extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// Plugin recognizes still image files by extension.
type Plugin struct {
	fs ports.FileSystem
}

// NewPlugin creates a plugin that reads files through fs.
func NewPlugin(fs ports.FileSystem) *Plugin {
	return &Plugin{fs: fs}
}

func (p *Plugin) Name() string {
	return PluginName
}

func (p *Plugin) CanRead(path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

func (p *Plugin) Source(path string) (ports.Source, error) {
	return &source{fs: p.fs, path: path}, nil
}

type source struct {
	fs   ports.FileSystem
	path string
}

// Open reads the file and its header. The picture is decoded later by the
// worker, like any other unit.
func (s *source) Open(ctx context.Context) (ports.Demuxer, ports.Decoder, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", s.path, err)
	}

	info := media.Info{
		Path:   s.path,
		Plugin: PluginName,
		Video: []media.VideoInfo{{
			Codec:    framecodec.CodecImage,
			Width:    cfg.Width,
			Height:   cfg.Height,
			TimeBase: media.NewRational(1, 1),
		}},
	}
	dec, err := framecodec.New(info)
	if err != nil {
		return nil, nil, err
	}
	return &demuxer{info: info, data: data}, dec, nil
}

// demuxer yields the picture as a single keyframe at time zero.
type demuxer struct {
	info media.Info
	data []byte
	done bool
}

func (d *demuxer) Info() media.Info {
	return d.info
}

func (d *demuxer) ReadUnit() (media.Unit, error) {
	if d.done {
		return media.Unit{}, io.EOF
	}
	d.done = true
	return media.Unit{
		Kind:      media.StreamVideo,
		Timestamp: media.NewTimestamp(0, d.info.Video[0].TimeBase),
		Duration:  1,
		Keyframe:  true,
		Data:      d.data,
	}, nil
}

// SeekKeyframe rewinds to the only frame.
func (d *demuxer) SeekKeyframe(t media.Timestamp) error {
	d.done = false
	return nil
}

func (d *demuxer) Close() error {
	return nil
}

var (
	_ ports.Plugin  = (*Plugin)(nil)
	_ ports.Demuxer = (*demuxer)(nil)
)
