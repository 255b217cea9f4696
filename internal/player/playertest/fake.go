// Package playertest provides an in-memory Graph for tests.
package playertest

import (
	"sync"
	"time"

	"emperror.dev/errors"

	"github.com/dewi-tim/vidtui/internal/player"
)

// ErrQueryFailed is returned by FakeGraph operations configured to fail.
var ErrQueryFailed = errors.New("playertest: operation failed")

// Call records one operation issued to a FakeGraph.
type Call struct {
	Op     string
	State  player.GraphState
	Handle uintptr
	Rate   float64
	Pos    time.Duration
}

// FakeGraph is a Graph that records calls and simulates a clock-free
// position.
type FakeGraph struct {
	mu sync.Mutex

	Location string
	Calls    []Call

	state    player.GraphState
	duration time.Duration
	position time.Duration
	rate     float64
	closed   bool

	// Failure switches
	FailDuration bool
	FailPosition bool
	FailState    map[player.GraphState]bool
	FailWindow   bool
	FailSeek     bool

	messages chan player.Message
}

// NewFakeGraph returns a graph reporting the given duration.
func NewFakeGraph(duration time.Duration) *FakeGraph {
	return &FakeGraph{
		duration:  duration,
		rate:      1.0,
		FailState: make(map[player.GraphState]bool),
		messages:  make(chan player.Message, 16),
	}
}

func (g *FakeGraph) record(c Call) {
	g.Calls = append(g.Calls, c)
}

// SetWindowHandle implements player.Graph.
func (g *FakeGraph) SetWindowHandle(handle uintptr) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return player.ErrClosed
	}
	g.record(Call{Op: "window", Handle: handle})
	if g.FailWindow {
		return ErrQueryFailed
	}
	return nil
}

// SetState implements player.Graph.
func (g *FakeGraph) SetState(state player.GraphState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return player.ErrClosed
	}
	g.record(Call{Op: "state", State: state})
	if g.FailState[state] {
		return ErrQueryFailed
	}
	if state == player.GraphNull {
		g.position = 0
	}
	g.state = state
	return nil
}

// QueryDuration implements player.Graph.
func (g *FakeGraph) QueryDuration() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || g.FailDuration {
		return 0, false
	}
	return g.duration, true
}

// QueryPosition implements player.Graph.
func (g *FakeGraph) QueryPosition() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || g.FailPosition || g.state == player.GraphNull {
		return 0, false
	}
	return g.position, true
}

// SeekRate implements player.Graph.
func (g *FakeGraph) SeekRate(rate float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return player.ErrClosed
	}
	g.record(Call{Op: "rate", Rate: rate, Pos: g.position})
	if g.FailSeek {
		return ErrQueryFailed
	}
	g.rate = rate
	return nil
}

// SeekTo implements player.Graph.
func (g *FakeGraph) SeekTo(pos time.Duration, rate float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return player.ErrClosed
	}
	g.record(Call{Op: "seek", Pos: pos, Rate: rate})
	if g.FailSeek {
		return ErrQueryFailed
	}
	g.position = pos
	return nil
}

// PopMessage implements player.Graph.
func (g *FakeGraph) PopMessage(timeout time.Duration) (player.Message, bool) {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		time.Sleep(timeout)
		return player.Message{}, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-g.messages:
		return msg, true
	case <-timer.C:
		return player.Message{}, false
	}
}

// Close implements player.Graph.
func (g *FakeGraph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.record(Call{Op: "close"})
	g.closed = true
	return nil
}

// Configure runs fn with the graph locked, for flipping failure switches
// while the player's loops are running.
func (g *FakeGraph) Configure(fn func(g *FakeGraph)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g)
}

// Post queues a bus message.
func (g *FakeGraph) Post(msg player.Message) {
	g.messages <- msg
}

// SetPosition moves the simulated playhead.
func (g *FakeGraph) SetPosition(pos time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = pos
}

// State returns the last state set.
func (g *FakeGraph) State() player.GraphState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Rate returns the last rate set.
func (g *FakeGraph) Rate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rate
}

// Closed reports whether Close was called.
func (g *FakeGraph) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Ops returns the recorded operations in order.
func (g *FakeGraph) Ops() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Call, len(g.Calls))
	copy(out, g.Calls)
	return out
}

// FakeBackend opens FakeGraphs.
type FakeBackend struct {
	mu sync.Mutex

	Duration time.Duration
	OpenErr  error
	Graphs   []*FakeGraph

	// Setup, if set, runs on every new graph before Open returns it.
	Setup func(g *FakeGraph)
}

// Name implements player.Backend.
func (b *FakeBackend) Name() string {
	return "fake"
}

// Open implements player.Backend.
func (b *FakeBackend) Open(location string) (player.Graph, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	g := NewFakeGraph(b.Duration)
	g.Location = location
	if b.Setup != nil {
		b.Setup(g)
	}
	b.Graphs = append(b.Graphs, g)
	return g, nil
}

// Last returns the most recently opened graph.
func (b *FakeBackend) Last() *FakeGraph {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.Graphs) == 0 {
		return nil
	}
	return b.Graphs[len(b.Graphs)-1]
}

var (
	_ player.Graph   = (*FakeGraph)(nil)
	_ player.Backend = (*FakeBackend)(nil)
)
