//go:build !cgo

// Package gst binds the GStreamer playback graph used by the player.
package gst

import (
	"time"

	"github.com/dewi-tim/vidtui/internal/player"
)

// Init is a no-op without cgo.
func Init() {}

// Graph is unavailable without cgo.
type Graph struct{}

// NewGraph returns ErrCGORequired.
func NewGraph(location, sink string) (*Graph, error) {
	return nil, ErrCGORequired
}

// SetWindowHandle returns ErrCGORequired.
func (g *Graph) SetWindowHandle(handle uintptr) error { return ErrCGORequired }

// SetState returns ErrCGORequired.
func (g *Graph) SetState(state player.GraphState) error { return ErrCGORequired }

// QueryDuration always fails.
func (g *Graph) QueryDuration() (time.Duration, bool) { return 0, false }

// QueryPosition always fails.
func (g *Graph) QueryPosition() (time.Duration, bool) { return 0, false }

// SeekRate returns ErrCGORequired.
func (g *Graph) SeekRate(rate float64) error { return ErrCGORequired }

// SeekTo returns ErrCGORequired.
func (g *Graph) SeekTo(pos time.Duration, rate float64) error { return ErrCGORequired }

// Close is a no-op.
func (g *Graph) Close() error { return nil }

// PopMessage waits out timeout and reports no message.
func (g *Graph) PopMessage(timeout time.Duration) (player.Message, bool) {
	time.Sleep(timeout)
	return player.Message{}, false
}

// Discoverer is unavailable without cgo.
type Discoverer struct {
	Timeout time.Duration
}

// NewDiscoverer returns a discoverer that always fails.
func NewDiscoverer(timeout time.Duration) *Discoverer {
	return &Discoverer{Timeout: timeout}
}

// Probe returns ErrCGORequired.
func (d *Discoverer) Probe(path string) (*player.Media, error) {
	return nil, ErrCGORequired
}

var _ player.Graph = (*Graph)(nil)
