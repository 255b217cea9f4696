package main

import (
	"fmt"
	"io"

	"emperror.dev/errors"
	"github.com/spf13/cobra"

	"github.com/dewi-tim/vidtui/internal/gst"
	"github.com/dewi-tim/vidtui/internal/library"
	"github.com/dewi-tim/vidtui/internal/player"
	"github.com/dewi-tim/vidtui/internal/ui/components"
)

func newProbeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe FILE...",
		Short: "Print stream metadata for video files",
		Args:  cobra.MinimumNArgs(1),
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

			return probeFiles(cmd.OutOrStdout(), gst.NewDiscoverer(cfg.GStreamer.ProbeTimeout), args)
		},
	}
}

// probeFiles prints metadata for each file, continuing past failures.
func probeFiles(w io.Writer, prober library.Prober, files []string) error {
	var errs []error
	for _, file := range files {
		media, err := prober.Probe(file)
		if err != nil {
			errs = append(errs, errors.Wrap(err, file))
			continue
		}
		printMedia(w, media)
	}
	return errors.Combine(errs...)
}

func printMedia(w io.Writer, m *player.Media) {
	field := func(name, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(w, "  %-10s %s\n", name+":", value)
	}

	fmt.Fprintln(w, m.Path)
	field("title", m.Title)
	field("duration", components.FormatDuration(m.Duration))
	field("size", m.Resolution())
	field("codec", m.Codec)
	field("container", m.Container)
	if !m.HasVideo {
		field("video", "none")
	}
}
