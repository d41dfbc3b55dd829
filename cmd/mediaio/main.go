// Package main provides the CLI entry point for mediaio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/mediaio/pkg/adapters/filesink"
	"github.com/user/mediaio/pkg/adapters/logger"
	"github.com/user/mediaio/pkg/adapters/mp4source"
	"github.com/user/mediaio/pkg/adapters/nullsink"
	"github.com/user/mediaio/pkg/adapters/osfilesystem"
	"github.com/user/mediaio/pkg/adapters/stillimage"
	"github.com/user/mediaio/pkg/adapters/testpattern"
	"github.com/user/mediaio/pkg/config"
	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/playback"
	"github.com/user/mediaio/pkg/ports"
	"github.com/user/mediaio/pkg/registry"
	"github.com/user/mediaio/pkg/thumbnail"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:                 "mediaio",
		Usage:                l10n.T("Decode media files and test patterns"),
		Description:          l10n.T("mediaio opens media through reader plugins and decodes frames in the background."),
		HideVersion:          true,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    l10n.T("Path to YAML config file"),
				Category: l10n.T("Configuration"),
			},
			&cli.StringFlag{
				Name:     "log-level",
				Aliases:  []string{"l"},
				Usage:    l10n.T("Log level (debug, info, warn, error)"),
				Category: l10n.T("Logging"),
			},
			&cli.BoolFlag{
				Name:     "quiet",
				Aliases:  []string{"Q"},
				Usage:    l10n.T("Suppress all log output"),
				Category: l10n.T("Logging"),
			},
		},
		Commands: []*cli.Command{
			infoCommand(),
			playCommand(),
			thumbCommand(),
			pluginsCommand(),
			versionCommand(),
		},
	}
}

// env holds the components shared by every command.
type env struct {
	cfg      config.Config
	log      ports.Logger
	fs       ports.FileSystem
	registry *registry.Registry
}

func setup(c *cli.Context) (*env, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(cfg.LogLevel, c.Bool("quiet"))

	fs := osfilesystem.New()
	reg := registry.New(log, cfg.ReaderOptions(),
		mp4source.NewPlugin(fs),
		stillimage.NewPlugin(fs),
		testpattern.NewPlugin(cfg.TestPatternOptions()),
	)

	return &env{cfg: cfg, log: log, fs: fs, registry: reg}, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     l10n.T("Show stream information"),
		ArgsUsage: "PATH...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit(l10n.T("At least one path is required"), 2)
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(e.log)
			defer cancel()

			for _, path := range c.Args().Slice() {
				if err := e.printInfo(ctx, c, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (e *env) printInfo(ctx context.Context, c *cli.Context, path string) error {
	reader, err := e.registry.Open(ctx, path)
	if err != nil {
		return err
	}
	defer reader.Close()

	info, err := reader.Info().Wait(ctx)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintln(w, l10n.F("%s (%s)", info.Path, info.Plugin))
	fmt.Fprintln(w, "  "+l10n.F("Duration: %s", info.Duration))
	if !info.Speed.IsZero() {
		fmt.Fprintln(w, "  "+l10n.F("Frame rate: %.3f fps", info.Speed.Float64()))
	}
	for i, v := range info.Video {
		fmt.Fprintln(w, "  "+l10n.F("Video #%d: %s %dx%d, time base %s", i, v.Codec, v.Width, v.Height, v.TimeBase))
	}
	for i, a := range info.Audio {
		fmt.Fprintln(w, "  "+l10n.F("Audio #%d: %s %d Hz, %d channels, time base %s", i, a.Codec, a.SampleRate, a.Channels, a.TimeBase))
	}
	return nil
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     l10n.T("Decode a source and report what was presented"),
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "seek", Aliases: []string{"s"}, Usage: l10n.T("Start position (e.g., 1.5, 250ms, 1m3s)")},
			&cli.BoolFlag{Name: "realtime", Aliases: []string{"r"}, Usage: l10n.T("Pace playback by the wall clock")},
			&cli.Float64Flag{Name: "rate", Usage: l10n.T("Playback rate in realtime mode")},
			&cli.IntFlag{Name: "max-frames", Aliases: []string{"n"}, Usage: l10n.T("Stop after this many video frames (0 = all)")},
			&cli.StringFlag{Name: "dump", Aliases: []string{"d"}, Usage: l10n.T("Directory for stream info and presented frames")},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit(l10n.T("Exactly one path is required"), 2)
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(e.log)
			defer cancel()

			opts := e.cfg.PlaybackOptions()
			opts.Realtime = c.Bool("realtime")
			opts.MaxFrames = c.Int("max-frames")
			if c.IsSet("rate") {
				opts.Rate = c.Float64("rate")
			}

			path := c.Args().First()
			reader, err := e.registry.Open(ctx, path)
			if err != nil {
				return err
			}
			defer reader.Close()

			var sink ports.FrameSink = nullsink.New()
			if dir := c.String("dump"); dir != "" {
				sink = filesink.New(dir, e.fs)
			}

			player := playback.New(reader, opts, e.log)
			if s := c.String("seek"); s != "" {
				t, err := media.ParseTimestamp(s)
				if err != nil {
					return cli.Exit(err.Error(), 2)
				}
				player.Seek(t)
			}

			if sink.Enabled() {
				info, err := reader.Info().Wait(ctx)
				if err != nil {
					return err
				}
				if err := sink.SaveInfo(info); err != nil {
					return fmt.Errorf("save info: %w", err)
				}
			}

			var saveErr error
			index := 0
			stats, err := player.Run(ctx, func(f media.VideoFrame) {
				e.log.Debug("Presented frame at %s", f.Timestamp)
				if saveErr == nil {
					saveErr = sink.SaveFrame(index, f)
				}
				index++
			}, nil)
			if err != nil {
				return err
			}
			if saveErr != nil {
				return fmt.Errorf("save frame: %w", saveErr)
			}

			w := c.App.Writer
			fmt.Fprintln(w, l10n.F("Played %d video frames and %d audio frames (%d samples) in %s",
				stats.VideoFrames, stats.AudioFrames, stats.AudioSamples, stats.Elapsed.Round(time.Millisecond)))
			if stats.VideoFrames > 0 {
				fmt.Fprintln(w, l10n.F("Video from %s to %s", stats.First, stats.Last))
			}
			return nil
		},
	}
}

func thumbCommand() *cli.Command {
	return &cli.Command{
		Name:      "thumb",
		Usage:     l10n.T("Write PNG thumbnails of the first frame"),
		ArgsUsage: "PATH...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "size", Usage: l10n.T("Longest thumbnail side in pixels (default: from config)")},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: l10n.T("Output directory")},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit(l10n.T("At least one path is required"), 2)
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(e.log)
			defer cancel()

			size := e.cfg.Thumbnail.Size
			if c.IsSet("size") {
				size = c.Int("size")
			}
			if size <= 0 {
				return cli.Exit(l10n.T("Thumbnail size must be positive"), 2)
			}
			return e.writeThumbnails(ctx, c, c.Args().Slice(), size, c.String("out"))
		},
	}
}

func (e *env) writeThumbnails(ctx context.Context, c *cli.Context, paths []string, size int, outDir string) error {
	thumbs, err := thumbnail.New(e.registry, e.cfg.CacheOptions(), e.log)
	if err != nil {
		return err
	}
	defer thumbs.Close()

	sink := filesink.New(outDir, e.fs)

	// Queue every request before waiting so the fetches overlap.
	requests := make([]func() error, len(paths))
	for i, path := range paths {
		fut := thumbs.Get(path, size)
		name := thumbName(path)
		requests[i] = func() error {
			img, err := fut.Wait(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := sink.SaveImage(name, img); err != nil {
				return fmt.Errorf("save %s: %w", name, err)
			}
			out := filepath.Join(outDir, name+".png")
			fmt.Fprintln(c.App.Writer, l10n.F("Wrote %s (%dx%d)", out, img.Bounds().Dx(), img.Bounds().Dy()))
			return nil
		}
	}

	failed := 0
	for _, wait := range requests {
		if err := wait(); err != nil {
			e.log.Error("Thumbnail failed: %v", err)
			failed++
		}
	}
	e.log.Debug("Cache usage: %.1f%%", thumbs.PercentageUsed())
	if failed > 0 {
		return cli.Exit(l10n.F("%d of %d thumbnails failed", failed, len(paths)), 1)
	}
	return nil
}

// thumbName derives a file name from a path or URL.
func thumbName(path string) string {
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '@':
			return r
		default:
			return '_'
		}
	}, base)
	if name == "" || name == "_" {
		return "thumbnail"
	}
	return name
}

func pluginsCommand() *cli.Command {
	return &cli.Command{
		Name:  "plugins",
		Usage: l10n.T("List reader plugins"),
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			for _, name := range e.registry.Names() {
				fmt.Fprintln(c.App.Writer, name)
			}
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, l10n.F("mediaio version %s", version))
			return nil
		},
	}
}
