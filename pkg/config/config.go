// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/mediaio/pkg/adapters/testpattern"
	"github.com/user/mediaio/pkg/avreader"
	"github.com/user/mediaio/pkg/playback"
	"github.com/user/mediaio/pkg/requestcache"
)

// Config represents the full configuration for mediaio.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Reader      ReaderConfig      `yaml:"reader"`
	Cache       CacheConfig       `yaml:"cache"`
	Thumbnail   ThumbnailConfig   `yaml:"thumbnail"`
	Playback    PlaybackConfig    `yaml:"playback"`
	TestPattern TestPatternConfig `yaml:"testpattern"`
}

// ReaderConfig represents queue backpressure settings.
type ReaderConfig struct {
	VideoHighWater int `yaml:"video_high_water"`
	VideoLowWater  int `yaml:"video_low_water"`
	AudioHighWater int `yaml:"audio_high_water"`
	AudioLowWater  int `yaml:"audio_low_water"`
	IdleWaitMs     int `yaml:"idle_wait_ms"`
}

// CacheConfig represents request cache settings.
type CacheConfig struct {
	Capacity        int `yaml:"capacity"`
	WaitTimeoutMs   int `yaml:"wait_timeout_ms"`
	PollIntervalMs  int `yaml:"poll_interval_ms"`
	StatsIntervalMs int `yaml:"stats_interval_ms"`
}

// ThumbnailConfig represents thumbnail settings.
type ThumbnailConfig struct {
	Size int `yaml:"size"`
}

// PlaybackConfig represents playback settings.
type PlaybackConfig struct {
	TickMs int     `yaml:"tick_ms"`
	Rate   float64 `yaml:"rate"`
}

// TestPatternConfig represents defaults for testpattern:// paths.
type TestPatternConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	FPS        int     `yaml:"fps"`
	Seconds    float64 `yaml:"seconds"`
	SampleRate int     `yaml:"sample_rate"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	r := avreader.DefaultOptions()
	c := requestcache.DefaultOptions()
	p := playback.DefaultOptions()
	tp := testpattern.DefaultOptions()
	return Config{
		LogLevel: "info",

		Reader: ReaderConfig{
			VideoHighWater: r.VideoHighWater,
			VideoLowWater:  r.VideoLowWater,
			AudioHighWater: r.AudioHighWater,
			AudioLowWater:  r.AudioLowWater,
			IdleWaitMs:     int(r.IdleWait / time.Millisecond),
		},

		Cache: CacheConfig{
			Capacity:       c.Capacity,
			WaitTimeoutMs:  int(c.WaitTimeout / time.Millisecond),
			PollIntervalMs: int(c.PollInterval / time.Millisecond),
		},

		Thumbnail: ThumbnailConfig{Size: 160},

		Playback: PlaybackConfig{
			TickMs: int(p.Tick / time.Millisecond),
			Rate:   p.Rate,
		},

		TestPattern: TestPatternConfig{
			Width:      tp.Width,
			Height:     tp.Height,
			FPS:        tp.FPS,
			Seconds:    tp.Seconds,
			SampleRate: tp.SampleRate,
		},
	}
}

// Parse applies YAML data on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}
	return Parse(data)
}

// Validate checks the configuration for values no component accepts.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.Reader.VideoHighWater < 0 || c.Reader.AudioHighWater < 0 {
		return fmt.Errorf("reader high water marks must not be negative")
	}
	if c.Reader.VideoLowWater > c.Reader.VideoHighWater {
		return fmt.Errorf("reader.video_low_water %d exceeds video_high_water %d",
			c.Reader.VideoLowWater, c.Reader.VideoHighWater)
	}
	if c.Reader.AudioLowWater > c.Reader.AudioHighWater {
		return fmt.Errorf("reader.audio_low_water %d exceeds audio_high_water %d",
			c.Reader.AudioLowWater, c.Reader.AudioHighWater)
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity)
	}
	if c.Thumbnail.Size <= 0 {
		return fmt.Errorf("thumbnail.size must be positive, got %d", c.Thumbnail.Size)
	}
	if c.Playback.Rate < 0 {
		return fmt.Errorf("playback.rate must not be negative, got %v", c.Playback.Rate)
	}
	return c.TestPatternOptions().Validate()
}

// ReaderOptions converts the reader section to avreader.Options.
func (c Config) ReaderOptions() avreader.Options {
	return avreader.Options{
		VideoHighWater: c.Reader.VideoHighWater,
		VideoLowWater:  c.Reader.VideoLowWater,
		AudioHighWater: c.Reader.AudioHighWater,
		AudioLowWater:  c.Reader.AudioLowWater,
		IdleWait:       millis(c.Reader.IdleWaitMs),
	}
}

// CacheOptions converts the cache section to requestcache.Options.
func (c Config) CacheOptions() requestcache.Options {
	return requestcache.Options{
		Capacity:      c.Cache.Capacity,
		WaitTimeout:   millis(c.Cache.WaitTimeoutMs),
		PollInterval:  millis(c.Cache.PollIntervalMs),
		StatsInterval: millis(c.Cache.StatsIntervalMs),
	}
}

// PlaybackOptions converts the playback section to playback.Options.
func (c Config) PlaybackOptions() playback.Options {
	return playback.Options{
		Rate: c.Playback.Rate,
		Tick: millis(c.Playback.TickMs),
	}
}

// TestPatternOptions converts the testpattern section to the defaults used
// for testpattern:// paths.
func (c Config) TestPatternOptions() testpattern.Options {
	opts := testpattern.DefaultOptions()
	opts.Width = c.TestPattern.Width
	opts.Height = c.TestPattern.Height
	opts.FPS = c.TestPattern.FPS
	opts.Seconds = c.TestPattern.Seconds
	opts.SampleRate = c.TestPattern.SampleRate
	return opts
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
