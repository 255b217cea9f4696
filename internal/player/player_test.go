package player_test

import (
	"bytes"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dewi-tim/vidtui/internal/player"
	"github.com/dewi-tim/vidtui/internal/player/playertest"
)

const testWindow uintptr = 0x2a00007

func newTestPlayer(t *testing.T, opts ...player.Option) (*player.VideoPlayer, *playertest.FakeGraph) {
	t.Helper()

	backend := &playertest.FakeBackend{Duration: 90 * time.Second}
	opts = append([]player.Option{
		player.WithLogger(zerolog.Nop()),
		player.WithBusPollInterval(5 * time.Millisecond),
		player.WithTickInterval(5 * time.Millisecond),
	}, opts...)

	p, err := player.New(testWindow, "/videos/clip.mkv", backend, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, backend.Last()
}

func TestNew_AppliesWindowAndReadies(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p, g := newTestPlayer(t)

	assert.Equal(t, "/videos/clip.mkv", g.Location)
	assert.Equal(t, []playertest.Call{
		{Op: "window", Handle: testWindow},
		{Op: "state", State: player.GraphReady},
	}, g.Ops())

	assert.Equal(t, player.StateStopped, p.State())
	assert.Equal(t, testWindow, p.WindowID())
	assert.Equal(t, "clip", p.Media().Title)
	assert.Equal(t, 1.0, p.Speed())

	require.NoError(t, p.Close())
}

func TestNew_ZeroWindowSkipsOverlay(t *testing.T) {
	backend := &playertest.FakeBackend{}
	p, err := player.New(0, "a.mp4", backend, player.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer p.Close()

	for _, c := range backend.Last().Ops() {
		assert.NotEqual(t, "window", c.Op)
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := player.New(testWindow, "a.mp4", nil)
	assert.ErrorIs(t, err, player.ErrNoBackend)

	openErr := errors.New("no such element: xvimagesink")
	_, err = player.New(testWindow, "a.mp4", &playertest.FakeBackend{OpenErr: openErr})
	assert.ErrorIs(t, err, openErr)
}

func TestNew_ReadyFailureReleasesGraph(t *testing.T) {
	backend := &failingReadyBackend{}
	_, err := player.New(testWindow, "a.mp4", backend, player.WithLogger(zerolog.Nop()))
	require.Error(t, err)
	assert.True(t, backend.graph.Closed())
}

type failingReadyBackend struct {
	graph *playertest.FakeGraph
}

func (b *failingReadyBackend) Name() string { return "failing" }

func (b *failingReadyBackend) Open(string) (player.Graph, error) {
	b.graph = playertest.NewFakeGraph(time.Second)
	b.graph.FailState[player.GraphReady] = true
	return b.graph, nil
}

func TestPlayPauseStop_ReapplyWindow(t *testing.T) {
	p, g := newTestPlayer(t)

	require.NoError(t, p.Play())
	assert.Equal(t, player.StatePlaying, p.State())
	assert.Equal(t, player.GraphPlaying, g.State())

	require.NoError(t, p.Pause())
	assert.Equal(t, player.StatePaused, p.State())
	assert.Equal(t, player.GraphPaused, g.State())

	require.NoError(t, p.Stop())
	assert.Equal(t, player.StateStopped, p.State())
	assert.Equal(t, player.GraphNull, g.State())

	ops := g.Ops()[2:]
	assert.Equal(t, []playertest.Call{
		{Op: "window", Handle: testWindow},
		{Op: "state", State: player.GraphPlaying},
		{Op: "window", Handle: testWindow},
		{Op: "state", State: player.GraphPaused},
		{Op: "state", State: player.GraphNull},
	}, ops)
}

func TestPlay_FrameworkFailure(t *testing.T) {
	p, g := newTestPlayer(t)
	g.Configure(func(g *playertest.FakeGraph) { g.FailState[player.GraphPlaying] = true })

	err := p.Play()
	assert.ErrorIs(t, err, playertest.ErrQueryFailed)
	assert.Equal(t, player.StateStopped, p.State())
}

func TestToggle(t *testing.T) {
	p, _ := newTestPlayer(t)

	require.NoError(t, p.Toggle())
	assert.Equal(t, player.StatePlaying, p.State())
	require.NoError(t, p.Toggle())
	assert.Equal(t, player.StatePaused, p.State())
	require.NoError(t, p.Toggle())
	assert.Equal(t, player.StatePlaying, p.State())
}

func TestDurationPosition_Seconds(t *testing.T) {
	p, g := newTestPlayer(t)

	require.NoError(t, p.Play())
	g.SetPosition(1500 * time.Millisecond)

	assert.InDelta(t, 90.0, p.Duration(), 1e-9)
	assert.InDelta(t, 1.5, p.Position(), 1e-9)
}

func TestDurationPosition_FailureLogsAndReturnsZero(t *testing.T) {
	var buf bytes.Buffer
	p, g := newTestPlayer(t, player.WithLogger(zerolog.New(&buf)))

	require.NoError(t, p.Play())
	g.Configure(func(g *playertest.FakeGraph) {
		g.FailDuration = true
		g.FailPosition = true
	})

	assert.Zero(t, p.Duration())
	assert.Zero(t, p.Position())
	assert.Contains(t, buf.String(), "could not query duration")
	assert.Contains(t, buf.String(), "could not query position")
}

func TestChangeSpeed(t *testing.T) {
	p, g := newTestPlayer(t)
	require.NoError(t, p.Play())
	g.SetPosition(10 * time.Second)

	require.NoError(t, p.ChangeSpeed(150))
	assert.Equal(t, 1.5, g.Rate())
	assert.Equal(t, 1.5, p.Speed())

	require.NoError(t, p.ChangeSpeed(-100))
	assert.Equal(t, -1.0, g.Rate())

	// clamped
	require.NoError(t, p.ChangeSpeed(2000))
	assert.Equal(t, player.MaxRate, g.Rate())
	require.NoError(t, p.ChangeSpeed(1))
	assert.Equal(t, player.MinRate, g.Rate())

	assert.ErrorIs(t, p.ChangeSpeed(0), player.ErrInvalidRate)
	assert.Equal(t, player.MinRate, p.Speed())

	ops := g.Ops()
	last := ops[len(ops)-1]
	assert.Equal(t, "rate", last.Op)
	assert.Equal(t, 10*time.Second, last.Pos)
}

func TestChangeSpeed_FailureKeepsRate(t *testing.T) {
	p, g := newTestPlayer(t)
	g.Configure(func(g *playertest.FakeGraph) { g.FailSeek = true })

	assert.Error(t, p.ChangeSpeed(200))
	assert.Equal(t, 1.0, p.Speed())
}

func TestSeek_ClampsAndKeepsRate(t *testing.T) {
	p, g := newTestPlayer(t)
	require.NoError(t, p.Play())
	require.NoError(t, p.SetSpeed(2))

	require.NoError(t, p.Seek(-time.Second))
	assert.Equal(t, playertest.Call{Op: "seek", Pos: 0, Rate: 2}, lastOp(g))

	require.NoError(t, p.Seek(5*time.Minute))
	assert.Equal(t, playertest.Call{Op: "seek", Pos: 90 * time.Second, Rate: 2}, lastOp(g))

	g.SetPosition(30 * time.Second)
	require.NoError(t, p.SeekRelative(-5*time.Second))
	assert.Equal(t, 25*time.Second, lastOp(g).Pos)
}

func lastOp(g *playertest.FakeGraph) playertest.Call {
	ops := g.Ops()
	return ops[len(ops)-1]
}

func TestInfo(t *testing.T) {
	p, g := newTestPlayer(t)

	info := p.Info()
	assert.Equal(t, player.StateStopped, info.State)
	assert.Equal(t, 90*time.Second, info.Duration)
	assert.Zero(t, info.Position)

	require.NoError(t, p.Play())
	g.SetPosition(45 * time.Second)
	info = p.Info()
	assert.Equal(t, player.StatePlaying, info.State)
	assert.Equal(t, 45*time.Second, info.Position)
	assert.InDelta(t, 0.5, info.Progress(), 1e-9)
	assert.Equal(t, 45*time.Second, info.Remaining())
	assert.Equal(t, 1.0, info.Rate)
}

func TestBus_EOSStopsAndNotifies(t *testing.T) {
	p, g := newTestPlayer(t)
	ch := p.Subscribe()
	require.NoError(t, p.Play())

	g.Post(player.Message{Kind: player.MessageEOS})

	require.Eventually(t, func() bool {
		return p.State() == player.StateStopped && p.Info().Finished
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, player.GraphNull, g.State())

	// the newest update replaces stale ones, so the finished one shows up
	require.Eventually(t, func() bool {
		select {
		case info := <-ch:
			return info.Finished
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// playing again clears the flag
	require.NoError(t, p.Play())
	assert.False(t, p.Info().Finished)
}

func TestBus_ErrorRecorded(t *testing.T) {
	p, g := newTestPlayer(t)
	require.NoError(t, p.Play())

	g.Post(player.Message{Kind: player.MessageError, Text: "Could not decode stream.", Debug: "gstdecodebin"})

	require.Eventually(t, func() bool {
		info := p.Info()
		return info.Err != nil && info.State == player.StateStopped
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, p.Info().Err.Error(), "Could not decode stream.")
}

func TestBus_ExternalPauseFollowed(t *testing.T) {
	p, g := newTestPlayer(t)
	require.NoError(t, p.Play())

	g.Post(player.Message{Kind: player.MessageStateChanged, OldState: player.GraphPlaying, NewState: player.GraphPaused})
	require.Eventually(t, func() bool { return p.State() == player.StatePaused }, time.Second, 5*time.Millisecond)

	// READY transitions do not touch the pause flag
	g.Post(player.Message{Kind: player.MessageStateChanged, OldState: player.GraphReady, NewState: player.GraphPaused})
	g.Post(player.Message{Kind: player.MessageStateChanged, OldState: player.GraphPaused, NewState: player.GraphPlaying})
	require.Eventually(t, func() bool { return p.State() == player.StatePlaying }, time.Second, 5*time.Millisecond)
}

func TestSubscribe_TicksWhilePlaying(t *testing.T) {
	p, g := newTestPlayer(t)
	ch := p.Subscribe()

	require.NoError(t, p.Play())
	g.SetPosition(3 * time.Second)

	require.Eventually(t, func() bool {
		select {
		case info := <-ch:
			return info.Position == 3*time.Second
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	p.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	backend := &playertest.FakeBackend{Duration: time.Minute}
	p, err := player.New(testWindow, "a.mp4", backend,
		player.WithLogger(zerolog.Nop()),
		player.WithBusPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	ch := p.Subscribe()

	require.NoError(t, p.Play())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.True(t, backend.Last().Closed())
	for range ch {
	}

	assert.ErrorIs(t, p.Play(), player.ErrClosed)
	assert.ErrorIs(t, p.Pause(), player.ErrClosed)
	assert.ErrorIs(t, p.Stop(), player.ErrClosed)
	assert.ErrorIs(t, p.ChangeSpeed(100), player.ErrClosed)
	assert.ErrorIs(t, p.Seek(0), player.ErrClosed)
	assert.Zero(t, p.Duration())
	assert.Zero(t, p.Position())

	_, ok := <-p.Subscribe()
	assert.False(t, ok)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "Playing", player.StatePlaying.String())
	assert.Equal(t, "PAUSED", player.GraphPaused.String())
	assert.Equal(t, "eos", player.MessageEOS.String())

	m := &player.Media{Width: 1920, Height: 1080}
	assert.Equal(t, "1920x1080", m.Resolution())
	assert.Empty(t, (&player.Media{}).Resolution())
}
