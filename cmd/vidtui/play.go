package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emperror.dev/errors"
	"github.com/spf13/cobra"

	"github.com/dewi-tim/vidtui/internal/config"
	"github.com/dewi-tim/vidtui/internal/gst"
	"github.com/dewi-tim/vidtui/internal/log"
	"github.com/dewi-tim/vidtui/internal/player"
)

// positionLogInterval spaces out position reports while playing.
const positionLogInterval = time.Second

func newPlayCmd(opts *options) *cobra.Command {
	var speed int

	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Play a file without the UI until it ends or is interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			closer, err := setupLogging(cfg, consoleWriter(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer closer.Close()

			backend, err := newBackend(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPlay(ctx, cfg, backend, args[0], speed)
		},
	}
	cmd.Flags().IntVarP(&speed, "speed", "s", 100, "playback speed in percent; negative plays in reverse")
	return cmd
}

// runPlay plays file until it ends, fails or ctx is done. A speed other
// than 100 is applied once the graph accepts seeks; some graphs refuse
// them until the first frames are queued.
func runPlay(ctx context.Context, cfg *config.Config, backend player.Backend, file string, speed int) error {
	if speed == 0 {
		return player.ErrInvalidRate
	}
	logger := log.WithComponent("play")

	opts := []player.Option{player.WithTickInterval(cfg.TickInterval)}
	if _, ok := backend.(*gst.Backend); ok {
		media, err := gst.NewDiscoverer(cfg.GStreamer.ProbeTimeout).Probe(file)
		if err != nil {
			logger.Warn().Err(err).Msg("probe failed")
		} else {
			opts = append(opts, player.WithMedia(media))
		}
	}

	p, err := player.New(uintptr(cfg.Window), file, backend, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error().Err(err).Msg("close failed")
		}
	}()

	updates := p.Subscribe()
	if err := p.Play(); err != nil {
		return err
	}
	pendingSpeed := speed != 100

	media := p.Media()
	logger.Info().
		Str("title", media.Title).
		Str("resolution", media.Resolution()).
		Str("codec", media.Codec).
		Float64("duration", p.Duration()).
		Float64("rate", p.Speed()).
		Msg("playing")

	var lastLog time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Info().Float64("position", p.Position()).Msg("interrupted")
			return nil

		case info, ok := <-updates:
			if !ok {
				return nil
			}
			if info.Err != nil {
				return errors.Wrap(info.Err, "playback failed")
			}
			if info.Finished {
				logger.Info().Msg("end of stream")
				return nil
			}
			if pendingSpeed && info.State == player.StatePlaying {
				if err := p.ChangeSpeed(speed); err != nil {
					logger.Debug().Err(err).Int("speed", speed).Msg("rate not accepted yet")
				} else {
					pendingSpeed = false
					info.Rate = p.Speed()
				}
			}
			if time.Since(lastLog) >= positionLogInterval {
				lastLog = time.Now()
				logger.Info().
					Dur("position", info.Position).
					Dur("duration", info.Duration).
					Float64("rate", info.Rate).
					Msg(info.State.String())
			}
		}
	}
}
