package testpattern

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Scheme prefixes test pattern paths.
const Scheme = "testpattern"

// Options describes a synthetic clip.
type Options struct {
	Width       int     // Frame width in pixels (default: 320)
	Height      int     // Frame height in pixels (default: 240)
	FPS         int     // Frames per second (default: 25)
	Seconds     float64 // Clip length (default: 5)
	KeyInterval int     // Frames between keyframes (default: 25)
	SampleRate  int     // Audio sample rate, 0 disables audio (default: 48000)
	Channels    int     // Audio channels (default: 2)
	ToneHz      float64 // Sine tone frequency (default: 440)
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Width:       320,
		Height:      240,
		FPS:         25,
		Seconds:     5,
		KeyInterval: 25,
		SampleRate:  48000,
		Channels:    2,
		ToneHz:      440,
	}
}

// Frames returns the number of video frames in the clip.
func (o Options) Frames() int {
	return int(o.Seconds*float64(o.FPS) + 0.5)
}

// Validate checks that the options describe a playable clip.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", o.Width, o.Height)
	}
	if o.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %d", o.FPS)
	}
	if o.Seconds <= 0 {
		return fmt.Errorf("invalid length %vs", o.Seconds)
	}
	if o.KeyInterval <= 0 {
		return fmt.Errorf("invalid keyframe interval %d", o.KeyInterval)
	}
	if o.SampleRate < 0 || (o.SampleRate > 0 && o.Channels <= 0) {
		return fmt.Errorf("invalid audio layout %d Hz, %d channels", o.SampleRate, o.Channels)
	}
	return nil
}

// ParseURL reads a path of the form
//
//	testpattern://WxH@FPS?seconds=S&keyint=K&rate=R&channels=C&tone=F
//
// Every part is optional; missing values come from defaults.
func ParseURL(raw string, defaults Options) (Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Options{}, fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme != Scheme {
		return Options{}, fmt.Errorf("parse %q: scheme is not %s", raw, Scheme)
	}

	o := defaults
	host := u.Host
	if u.User != nil {
		// "WxH@FPS" parses as userinfo and host.
		host = u.User.String() + "@" + host
	}
	if host != "" {
		size, fps, hasFPS := strings.Cut(host, "@")
		if size != "" {
			w, h, ok := strings.Cut(size, "x")
			if !ok {
				return Options{}, fmt.Errorf("parse %q: size %q is not WxH", raw, size)
			}
			if o.Width, err = strconv.Atoi(w); err != nil {
				return Options{}, fmt.Errorf("parse %q: width: %w", raw, err)
			}
			if o.Height, err = strconv.Atoi(h); err != nil {
				return Options{}, fmt.Errorf("parse %q: height: %w", raw, err)
			}
		}
		if hasFPS {
			if o.FPS, err = strconv.Atoi(fps); err != nil {
				return Options{}, fmt.Errorf("parse %q: fps: %w", raw, err)
			}
		}
	}

	q := u.Query()
	ints := map[string]*int{"keyint": &o.KeyInterval, "rate": &o.SampleRate, "channels": &o.Channels}
	for key, dst := range ints {
		if v := q.Get(key); v != "" {
			if *dst, err = strconv.Atoi(v); err != nil {
				return Options{}, fmt.Errorf("parse %q: %s: %w", raw, key, err)
			}
		}
	}
	floats := map[string]*float64{"seconds": &o.Seconds, "tone": &o.ToneHz}
	for key, dst := range floats {
		if v := q.Get(key); v != "" {
			if *dst, err = strconv.ParseFloat(v, 64); err != nil {
				return Options{}, fmt.Errorf("parse %q: %s: %w", raw, key, err)
			}
		}
	}

	if err := o.Validate(); err != nil {
		return Options{}, fmt.Errorf("parse %q: %w", raw, err)
	}
	return o, nil
}
