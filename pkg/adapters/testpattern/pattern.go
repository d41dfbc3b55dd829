// Package testpattern synthesizes colour-bar video with a matching sine
// tone. It needs no files and is used for smoke tests and benchmarks of
// the decode pipeline.
package testpattern

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/fogleman/gg"

	"github.com/user/mediaio/pkg/adapters/framecodec"
	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// PluginName identifies the plugin in stream info.
const PluginName = "testpattern"

var bars = []color.RGBA{
	{R: 192, G: 192, B: 192, A: 255},
	{R: 192, G: 192, B: 0, A: 255},
	{R: 0, G: 192, B: 192, A: 255},
	{R: 0, G: 192, B: 0, A: 255},
	{R: 192, G: 0, B: 192, A: 255},
	{R: 192, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 192, A: 255},
}

// Plugin serves testpattern:// paths.
type Plugin struct {
	defaults Options
}

// NewPlugin creates a plugin whose unspecified URL parts come from defaults.
func NewPlugin(defaults Options) *Plugin {
	return &Plugin{defaults: defaults}
}

func (p *Plugin) Name() string {
	return PluginName
}

func (p *Plugin) CanRead(path string) bool {
	return strings.HasPrefix(path, Scheme+"://")
}

func (p *Plugin) Source(path string) (ports.Source, error) {
	opts, err := ParseURL(path, p.defaults)
	if err != nil {
		return nil, err
	}
	return &Source{path: path, opts: opts}, nil
}

// Source generates one synthetic clip.
type Source struct {
	path string
	opts Options
}

// NewSource creates a source for opts directly.
func NewSource(opts Options) (*Source, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("%s://%dx%d@%d", Scheme, opts.Width, opts.Height, opts.FPS)
	return &Source{path: path, opts: opts}, nil
}

// Open describes the clip. Frames are painted on demand.
func (s *Source) Open(ctx context.Context) (ports.Demuxer, ports.Decoder, error) {
	o := s.opts
	videoBase := media.NewRational(1, int64(o.FPS))
	frames := o.Frames()

	info := media.Info{
		Path:   s.path,
		Plugin: PluginName,
		Video: []media.VideoInfo{{
			Codec:    framecodec.CodecRGBA,
			Width:    o.Width,
			Height:   o.Height,
			TimeBase: videoBase,
		}},
		Duration: media.NewTimestamp(int64(frames), videoBase),
		Speed:    media.NewRational(int64(o.FPS), 1),
	}
	if o.SampleRate > 0 {
		info.Audio = []media.AudioInfo{{
			Codec:      framecodec.CodecPCMS16LE,
			Format:     media.SampleS16LE,
			Channels:   o.Channels,
			SampleRate: o.SampleRate,
			TimeBase:   media.NewRational(1, int64(o.SampleRate)),
		}}
	}

	dec, err := framecodec.New(info)
	if err != nil {
		return nil, nil, err
	}
	return &demuxer{opts: o, info: info, frames: frames}, dec, nil
}

// demuxer paints one frame and one audio block per video frame interval.
type demuxer struct {
	opts   Options
	info   media.Info
	frames int
	video  int
	audio  int
}

func (d *demuxer) Info() media.Info {
	return d.info
}

func (d *demuxer) ReadUnit() (media.Unit, error) {
	hasAudio := len(d.info.Audio) > 0
	videoLeft := d.video < d.frames
	audioLeft := hasAudio && d.audio < d.frames

	switch {
	case videoLeft && (!audioLeft || d.video <= d.audio):
		u := d.videoUnit(d.video)
		d.video++
		return u, nil
	case audioLeft:
		u := d.audioUnit(d.audio)
		d.audio++
		return u, nil
	}
	return media.Unit{}, io.EOF
}

// SeekKeyframe moves both streams to the keyframe interval containing t.
func (d *demuxer) SeekKeyframe(t media.Timestamp) error {
	i := int(t.Rescale(d.info.Video[0].TimeBase).Value)
	switch {
	case i < 0:
		i = 0
	case i >= d.frames:
		i = d.frames
	default:
		i -= i % d.opts.KeyInterval
	}
	d.video, d.audio = i, i
	return nil
}

func (d *demuxer) Close() error {
	return nil
}

func (d *demuxer) videoUnit(i int) media.Unit {
	return media.Unit{
		Kind:      media.StreamVideo,
		Timestamp: media.NewTimestamp(int64(i), d.info.Video[0].TimeBase),
		Duration:  1,
		Keyframe:  i%d.opts.KeyInterval == 0,
		Data:      framecodec.EncodeRGBA(Paint(d.opts.Width, d.opts.Height, i)),
	}
}

// audioUnit returns the samples covering video frame i.
func (d *demuxer) audioUnit(i int) media.Unit {
	rate, fps := int64(d.opts.SampleRate), int64(d.opts.FPS)
	start := rate * int64(i) / fps
	end := rate * int64(i+1) / fps

	samples := make([]float64, 0, int(end-start)*d.opts.Channels)
	for n := start; n < end; n++ {
		v := 0.25 * math.Sin(2*math.Pi*d.opts.ToneHz*float64(n)/float64(rate))
		for c := 0; c < d.opts.Channels; c++ {
			samples = append(samples, v)
		}
	}
	return media.Unit{
		Kind:      media.StreamAudio,
		Timestamp: media.NewTimestamp(start, d.info.Audio[0].TimeBase),
		Duration:  end - start,
		Keyframe:  true,
		Data:      framecodec.EncodeS16LE(samples),
	}
}

// Paint draws frame i: colour bars, a sweep marker and the frame number.
func Paint(width, height, i int) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetColor(color.Black)
	dc.Clear()

	barWidth := float64(width) / float64(len(bars))
	barHeight := float64(height) * 0.75
	for n, c := range bars {
		dc.SetColor(c)
		dc.DrawRectangle(float64(n)*barWidth, 0, barWidth+1, barHeight)
		dc.Fill()
	}

	// The marker crosses the frame once per 100 frames.
	x := float64(i%100) / 100 * float64(width)
	dc.SetColor(color.White)
	dc.DrawRectangle(x, barHeight, math.Max(2, float64(width)/50), float64(height)-barHeight)
	dc.Fill()

	dc.DrawStringAnchored(fmt.Sprintf("frame %d", i), float64(width)/2, barHeight/2, 0.5, 0.5)
	return dc.Image()
}

var (
	_ ports.Plugin  = (*Plugin)(nil)
	_ ports.Source  = (*Source)(nil)
	_ ports.Demuxer = (*demuxer)(nil)
)
