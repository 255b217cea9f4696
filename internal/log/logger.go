// Package log configures the zerolog logger shared by all vidtui packages.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // optional log level ("debug", "info", etc.)
	Output  io.Writer // optional writer (defaults to os.Stderr)
	Service string    // optional service name attached to every log entry
}

var (
	mu         sync.Mutex
	configured bool
	base       zerolog.Logger
)

// Configure replaces the base logger. The first call wins unless Reset is
// called in between; later calls are ignored so packages that log during
// init do not clobber the CLI's choice of output.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	if configured {
		return
	}
	configured = true

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	} else if env := os.Getenv("VIDTUI_LOG_LEVEL"); env != "" {
		if parsed, err := zerolog.ParseLevel(env); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}

	service := cfg.Service
	if service == "" {
		service = "vidtui"
	}

	base = zerolog.New(writer).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Reset forgets the current configuration so the next Configure applies.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	configured = false
}

func logger() zerolog.Logger {
	mu.Lock()
	ok := configured
	mu.Unlock()
	if !ok {
		Configure(Config{})
	}

	mu.Lock()
	defer mu.Unlock()
	return base
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	return logger()
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str("component", component).Logger()
}
