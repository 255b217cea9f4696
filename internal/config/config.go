// Package config loads the vidtui configuration.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"time"

	"emperror.dev/errors"
	"github.com/BurntSushi/toml"
)

// DefaultToml holds the built-in defaults every loaded file is layered on.
//
//go:embed default.toml
var DefaultToml []byte

// GStreamerConfig configures the GStreamer backend and media probing.
type GStreamerConfig struct {
	Sink         string        `toml:"sink"`
	ProbeTimeout time.Duration `toml:"probetimeout"`
	ProbeWorkers int           `toml:"probeworkers"`
}

// MPVConfig configures the mpv backend.
type MPVConfig struct {
	Binary    string   `toml:"binary"`
	SocketDir string   `toml:"socketdir"`
	ExtraArgs []string `toml:"extraargs"`
}

// LogConfig configures logging. An empty File logs to stderr.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Config is the full application configuration.
type Config struct {
	Backend      string          `toml:"backend"`
	Window       uint64          `toml:"window"`
	Library      string          `toml:"library"`
	SeekStep     time.Duration   `toml:"seekstep"`
	SpeedStep    int             `toml:"speedstep"`
	TickInterval time.Duration   `toml:"tickinterval"`
	GStreamer    GStreamerConfig `toml:"gstreamer"`
	MPV          MPVConfig       `toml:"mpv"`
	Log          LogConfig       `toml:"log"`
}

// Backend names accepted in Config.Backend.
const (
	BackendGStreamer = "gstreamer"
	BackendMPV       = "mpv"
)

// Load decodes the embedded defaults and layers the file at path on top.
// An empty path falls back to DefaultPath when that file exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.Decode(string(DefaultToml), cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load default config")
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil || explicit {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, errors.Wrapf(err, "failed to load config from %s", path)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/vidtui/config.toml, or "" when the
// user config directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "vidtui", "config.toml")
}

// Validate checks values that would otherwise fail deep inside a backend.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGStreamer, BackendMPV:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if c.SeekStep <= 0 {
		return errors.Errorf("seekstep must be positive, got %s", c.SeekStep)
	}
	if c.SpeedStep <= 0 || c.SpeedStep > 100 {
		return errors.Errorf("speedstep must be in 1..100, got %d", c.SpeedStep)
	}
	if c.TickInterval <= 0 {
		return errors.Errorf("tickinterval must be positive, got %s", c.TickInterval)
	}
	if c.GStreamer.ProbeWorkers < 1 {
		c.GStreamer.ProbeWorkers = 1
	}
	return nil
}
