package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"emperror.dev/errors"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dewi-tim/vidtui/internal/config"
	"github.com/dewi-tim/vidtui/internal/gst"
	"github.com/dewi-tim/vidtui/internal/library"
	"github.com/dewi-tim/vidtui/internal/log"
	"github.com/dewi-tim/vidtui/internal/mpv"
	"github.com/dewi-tim/vidtui/internal/player"
	"github.com/dewi-tim/vidtui/internal/ui"
	"github.com/dewi-tim/vidtui/internal/ui/components"
)

// options holds the global flags.
type options struct {
	configPath string
	backend    string
	window     uint64
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "vidtui [dir]",
		Short: "Terminal controller for video playback",
		Long: "vidtui browses a video library and drives playback into a native window.\n" +
			"The directory argument overrides the configured library root.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Library = args[0]
			}
			return runTUI(cmd.Context(), cfg)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	flags.StringVarP(&opts.backend, "backend", "b", "", "playback backend: gstreamer or mpv")
	flags.Uint64VarP(&opts.window, "window", "w", 0, "native window id to render into")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newPlayCmd(opts), newProbeCmd(opts))
	return cmd
}

// loadConfig reads the config file and applies flags the user set.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = opts.backend
	}
	if flags.Changed("window") {
		cfg.Window = opts.window
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid flags")
	}
	return cfg, nil
}

// setupLogging configures the shared logger. fallback is used when no log
// file is configured. The returned closer releases the file, if any.
func setupLogging(cfg *config.Config, fallback io.Writer) (io.Closer, error) {
	if cfg.Log.File == "" {
		log.Configure(log.Config{Level: cfg.Log.Level, Output: fallback})
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return nil, errors.Wrap(err, "create log directory")
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	log.Configure(log.Config{Level: cfg.Log.Level, Output: f})
	return f, nil
}

// newBackend returns the configured playback backend.
func newBackend(cfg *config.Config) (player.Backend, error) {
	switch cfg.Backend {
	case config.BackendGStreamer:
		return gst.NewBackend(cfg.GStreamer.Sink), nil
	case config.BackendMPV:
		return mpv.NewBackend(cfg.MPV.Binary, cfg.MPV.SocketDir, cfg.MPV.ExtraArgs), nil
	default:
		return nil, errors.Errorf("unknown backend %q", cfg.Backend)
	}
}

// newOpener returns a ui.Opener that probes each file before opening it.
func newOpener(cfg *config.Config, backend player.Backend, prober library.Prober) ui.Opener {
	logger := log.WithComponent("open")
	return func(path string) (player.Player, error) {
		opts := []player.Option{player.WithTickInterval(cfg.TickInterval)}
		if media, err := prober.Probe(path); err == nil {
			opts = append(opts, player.WithMedia(media))
		} else {
			logger.Debug().Err(err).Str("file", path).Msg("probe failed")
		}

		p, err := player.New(uintptr(cfg.Window), path, backend, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// libraryRoot resolves the library directory, defaulting to the home
// directory.
func libraryRoot(cfg *config.Config) (string, error) {
	root := cfg.Library
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "resolve home directory")
		}
		root = home
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", root)
	}
	return abs, nil
}

func runTUI(ctx context.Context, cfg *config.Config) error {
	// The alternate screen owns the terminal; without a log file, logs are
	// dropped.
	closer, err := setupLogging(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger := log.WithComponent("cmd")

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	root, err := libraryRoot(cfg)
	if err != nil {
		return err
	}

	discoverer := gst.NewDiscoverer(cfg.GStreamer.ProbeTimeout)
	lib := library.New(root,
		library.WithProber(discoverer),
		library.WithWorkers(cfg.GStreamer.ProbeWorkers),
		library.WithLogger(log.WithComponent("library")),
	)

	uiLogger := log.WithComponent("ui")
	model := ui.New(ui.Config{
		StartDir:  root,
		Library:   lib,
		Open:      newOpener(cfg, backend, discoverer),
		SeekStep:  cfg.SeekStep,
		SpeedStep: cfg.SpeedStep,
		Logger:    &uiLogger,
	})

	logger.Info().
		Str("backend", backend.Name()).
		Str("library", root).
		Uint64("window", cfg.Window).
		Msg("starting")

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	watchCtx, cancel := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		err := lib.Watch(watchCtx, library.DefaultDebounce, func(n int, err error) {
			program.Send(components.LibraryScannedMsg{Count: n, Err: err})
		})
		if err != nil {
			logger.Warn().Err(err).Msg("library watcher stopped")
		}
	}()

	final, runErr := program.Run()
	cancel()
	<-watchDone

	if m, ok := final.(ui.Model); ok {
		if err := m.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("could not release player")
		}
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return errors.Wrap(runErr, "run ui")
	}
	return nil
}

// consoleWriter renders logs for interactive headless use.
func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}
