package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dewi-tim/vidtui/internal/config"
	"github.com/dewi-tim/vidtui/internal/gst"
	"github.com/dewi-tim/vidtui/internal/mpv"
	"github.com/dewi-tim/vidtui/internal/player"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "backend = \"gstreamer\"\nwindow = 7\n")

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--backend", "mpv", "--log-level", "debug"}))

	opts := &options{}
	opts.configPath, _ = cmd.Flags().GetString("config")
	opts.backend, _ = cmd.Flags().GetString("backend")
	opts.logLevel, _ = cmd.Flags().GetString("log-level")

	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, config.BackendMPV, cfg.Backend)
	assert.Equal(t, uint64(7), cfg.Window)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--backend", "vlc"}))

	_, err := loadConfig(cmd, &options{configPath: writeConfig(t, ""), backend: "vlc"})
	assert.ErrorContains(t, err, "unknown backend")
}

func TestNewBackend(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, ""))
	require.NoError(t, err)

	b, err := newBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &gst.Backend{}, b)

	cfg.Backend = config.BackendMPV
	b, err = newBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &mpv.Backend{}, b)

	cfg.Backend = "vlc"
	_, err = newBackend(cfg)
	assert.Error(t, err)
}

func TestPlay_MissingFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"play", "--config", writeConfig(t, ""), "--backend", "mpv", "/nonexistent/clip.mkv"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLibraryRoot(t *testing.T) {
	dir := t.TempDir()
	root, err := libraryRoot(&config.Config{Library: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	root, err = libraryRoot(&config.Config{})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root))
}

type stubProber map[string]*player.Media

func (s stubProber) Probe(path string) (*player.Media, error) {
	if m, ok := s[path]; ok {
		return m, nil
	}
	return nil, errors.New("no streams")
}

func TestProbeFiles(t *testing.T) {
	prober := stubProber{
		"/v/a.mkv": {
			Path:      "/v/a.mkv",
			Title:     "A",
			Container: "Matroska",
			Codec:     "H.264",
			Width:     640,
			Height:    480,
			HasVideo:  true,
			Duration:  75 * time.Second,
		},
	}

	var out bytes.Buffer
	err := probeFiles(&out, prober, []string{"/v/a.mkv", "/v/b.mkv"})

	assert.ErrorContains(t, err, "/v/b.mkv")
	assert.Equal(t, "/v/a.mkv\n"+
		"  title:     A\n"+
		"  duration:  01:15\n"+
		"  size:      640x480\n"+
		"  codec:     H.264\n"+
		"  container: Matroska\n", out.String())
}
