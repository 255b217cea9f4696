package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dewi-tim/vidtui/internal/config"
	"github.com/dewi-tim/vidtui/internal/player"
	"github.com/dewi-tim/vidtui/internal/player/playertest"
)

func startPlay(t *testing.T, ctx context.Context, backend *playertest.FakeBackend, speed int) (<-chan error, *playertest.FakeGraph) {
	t.Helper()

	cfg := &config.Config{TickInterval: 10 * time.Millisecond}
	done := make(chan error, 1)
	go func() {
		done <- runPlay(ctx, cfg, backend, "/videos/clip.mkv", speed)
	}()

	require.Eventually(t, func() bool {
		g := backend.Last()
		return g != nil && g.State() == player.GraphPlaying
	}, 2*time.Second, 5*time.Millisecond)
	return done, backend.Last()
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		require.FailNow(t, "play did not return")
		return nil
	}
}

func hasOp(g *playertest.FakeGraph, op string) bool {
	for _, c := range g.Ops() {
		if c.Op == op {
			return true
		}
	}
	return false
}

func TestRunPlay_AppliesSpeedOnceAccepted(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	// the graph refuses rate changes until it has prerolled
	backend := &playertest.FakeBackend{
		Duration: time.Minute,
		Setup:    func(g *playertest.FakeGraph) { g.FailSeek = true },
	}
	done, g := startPlay(t, context.Background(), backend, 150)

	require.Eventually(t, func() bool { return hasOp(g, "rate") }, 2*time.Second, 5*time.Millisecond)
	select {
	case err := <-done:
		require.FailNow(t, "play returned on a refused rate change", "err: %v", err)
	default:
	}
	assert.Equal(t, 1.0, g.Rate())

	g.Configure(func(g *playertest.FakeGraph) { g.FailSeek = false })
	require.Eventually(t, func() bool { return g.Rate() == 1.5 }, 2*time.Second, 5*time.Millisecond)

	g.Post(player.Message{Kind: player.MessageEOS})
	require.NoError(t, waitDone(t, done))
	assert.True(t, g.Closed())
}

func TestRunPlay_NormalSpeedLeavesRate(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	backend := &playertest.FakeBackend{Duration: time.Minute}
	done, g := startPlay(t, context.Background(), backend, 100)

	g.Post(player.Message{Kind: player.MessageEOS})
	require.NoError(t, waitDone(t, done))
	assert.False(t, hasOp(g, "rate"))
}

func TestRunPlay_BusErrorFails(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	backend := &playertest.FakeBackend{Duration: time.Minute}
	done, g := startPlay(t, context.Background(), backend, 100)

	g.Post(player.Message{Kind: player.MessageError, Text: "Could not decode stream."})
	err := waitDone(t, done)
	require.Error(t, err)
	assert.ErrorContains(t, err, "Could not decode stream.")
	assert.True(t, g.Closed())
}

func TestRunPlay_InterruptStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	backend := &playertest.FakeBackend{Duration: time.Minute}
	done, g := startPlay(t, ctx, backend, -200)

	require.Eventually(t, func() bool { return g.Rate() == -2.0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, waitDone(t, done))
	assert.True(t, g.Closed())
}

func TestRunPlay_ZeroSpeedRejected(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	backend := &playertest.FakeBackend{Duration: time.Minute}
	err := runPlay(context.Background(), &config.Config{TickInterval: time.Second}, backend, "/videos/clip.mkv", 0)
	assert.ErrorIs(t, err, player.ErrInvalidRate)
	assert.Empty(t, backend.Graphs)
}
