package library

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dewi-tim/vidtui/internal/player"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProber struct {
	mu       sync.Mutex
	calls    int
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (p *fakeProber) Probe(path string) (*player.Media, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if strings.Contains(path, "broken") {
		return nil, assert.AnError
	}
	return &player.Media{
		Path:     path,
		Title:    "Probed " + filepath.Base(path),
		Codec:    "H.264",
		Width:    1920,
		Height:   1080,
		HasVideo: true,
		Duration: time.Minute,
	}, nil
}

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, r)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

func TestScan_GroupsByTopLevelFolder(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"Nature/ocean.mkv",
		"Nature/deep/forest.MP4",
		"Talks/keynote.webm",
		"loose.avi",
		"notes.txt",
		".hidden/secret.mkv",
		"Talks/.partial.mkv",
	)

	lib := New(root, WithLogger(zerolog.Nop()))
	n, err := lib.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, lib.VideoCount())

	assert.ElementsMatch(t, []string{"Nature", "Talks", filepath.Base(root)}, lib.Collections())

	nature := lib.Videos("Nature")
	require.Len(t, nature, 2)
	assert.Equal(t, "forest", nature[0].Title)
	assert.Equal(t, "ocean", nature[1].Title)
	assert.False(t, nature[0].Probed)

	assert.Nil(t, lib.Videos("Missing"))
	assert.Nil(t, lib.GetCollection("Missing"))
	assert.Equal(t, "Talks", lib.GetCollection("Talks").Name)
}

func TestScan_ProbesWithBoundedWorkers(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"A/one.mkv", "A/two.mkv", "A/three.mkv", "A/broken.mkv",
		"B/four.mp4", "B/five.mp4", "B/six.mp4", "B/seven.mp4",
	)

	prober := &fakeProber{}
	lib := New(root, WithProber(prober), WithWorkers(2), WithLogger(zerolog.Nop()))

	n, err := lib.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 8, prober.calls)
	assert.LessOrEqual(t, prober.peak.Load(), int32(2))

	var broken, probed int
	for _, v := range lib.AllVideos() {
		if v.Title == "broken" {
			broken++
			assert.False(t, v.Probed)
			continue
		}
		probed++
		assert.True(t, v.Probed)
		assert.Equal(t, "1920x1080", v.Resolution())
		assert.True(t, strings.HasPrefix(v.Title, "Probed "))
	}
	assert.Equal(t, 1, broken)
	assert.Equal(t, 7, probed)
}

func TestScan_RescanReplacesIndex(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "A/one.mkv")

	lib := New(root, WithLogger(zerolog.Nop()))
	_, err := lib.Scan(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "A/one.mkv")))
	touch(t, root, "B/two.mkv")

	n, err := lib.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"B"}, lib.Collections())
}

func TestScan_MissingRoot(t *testing.T) {
	lib := New(filepath.Join(t.TempDir(), "nope"), WithLogger(zerolog.Nop()))
	_, err := lib.Scan(context.Background())
	assert.Error(t, err)
}

func TestScan_Canceled(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "A/one.mkv", "A/two.mkv")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lib := New(root, WithProber(&fakeProber{}), WithLogger(zerolog.Nop()))
	_, err := lib.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"clip.mkv", true},
		{"CLIP.MP4", true},
		{"talk.webm", true},
		{"song.mp3", false},
		{"readme", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVideoFile(tt.name))
		})
	}
}

func TestWatch_RescansOnChange(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "A/one.mkv")

	lib := New(root, WithLogger(zerolog.Nop()))
	_, err := lib.Scan(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	scans := make(chan int, 8)
	done := make(chan error, 1)
	go func() {
		done <- lib.Watch(ctx, 20*time.Millisecond, func(n int, err error) {
			if err != nil {
				return
			}
			select {
			case scans <- n:
			default:
			}
		})
	}()

	// Give the watcher time to register before touching the tree.
	time.Sleep(50 * time.Millisecond)
	touch(t, root, "A/two.mkv")

	select {
	case n := <-scans:
		assert.Equal(t, 2, n)
	case <-time.After(3 * time.Second):
		t.Fatal("no rescan after change")
	}

	cancel()
	require.NoError(t, <-done)
}
