package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendGStreamer, cfg.Backend)
	assert.Equal(t, uint64(0), cfg.Window)
	assert.Equal(t, 5*time.Second, cfg.SeekStep)
	assert.Equal(t, 10, cfg.SpeedStep)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "xvimagesink", cfg.GStreamer.Sink)
	assert.Equal(t, 4, cfg.GStreamer.ProbeWorkers)
	assert.Equal(t, "mpv", cfg.MPV.Binary)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidtui.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend = "mpv"
window = 41943047
seekstep = "10s"

[gstreamer]
sink = "glimagesink"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendMPV, cfg.Backend)
	assert.Equal(t, uint64(41943047), cfg.Window)
	assert.Equal(t, 10*time.Second, cfg.SeekStep)
	assert.Equal(t, "glimagesink", cfg.GStreamer.Sink)
	// untouched values keep their defaults
	assert.Equal(t, 10, cfg.SpeedStep)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Backend:      BackendGStreamer,
			SeekStep:     time.Second,
			SpeedStep:    10,
			TickInterval: time.Second,
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.GStreamer.ProbeWorkers)

	cfg = base()
	cfg.Backend = "vlc"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SpeedStep = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SeekStep = 0
	assert.Error(t, cfg.Validate())
}
