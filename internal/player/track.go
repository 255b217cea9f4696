// Package player provides the playback adapter over an external media graph.
package player

import (
	"fmt"
	"time"
)

// Media represents metadata about an opened video file.
type Media struct {
	// File path
	Path string

	// Tag information
	Title     string // Container title tag, or the file name
	Container string // e.g. "Matroska", "Quicktime"
	Codec     string // Video codec description, e.g. "H.264 (High Profile)"

	// Video stream information
	Width    int
	Height   int
	HasVideo bool

	// Timing information
	Duration time.Duration
}

// Resolution returns "WIDTHxHEIGHT", or "" when unknown.
func (m *Media) Resolution() string {
	if m == nil || m.Width == 0 || m.Height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// PlayState represents the current playback state.
type PlayState int

const (
	// StateStopped indicates the graph is in NULL or READY.
	StateStopped PlayState = iota
	// StatePlaying indicates playback is active.
	StatePlaying
	// StatePaused indicates playback is paused.
	StatePaused
)

// String returns a human-readable name for the play state.
func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// PlaybackInfo contains information about the current playback.
type PlaybackInfo struct {
	// Current state
	State PlayState

	// Position information
	Position time.Duration // Current playback position
	Duration time.Duration // Total duration

	// Rate is the playback rate (1.0 = normal, negative = reverse).
	Rate float64

	// Finished is set once the graph reported end of stream.
	Finished bool

	// Err holds the last error reported on the bus, if any.
	Err error
}

// Progress returns the playback progress as a value between 0.0 and 1.0.
func (p *PlaybackInfo) Progress() float64 {
	if p.Duration == 0 {
		return 0.0
	}
	progress := float64(p.Position) / float64(p.Duration)
	if progress > 1.0 {
		return 1.0
	}
	if progress < 0.0 {
		return 0.0
	}
	return progress
}

// Remaining returns the remaining playback time.
func (p *PlaybackInfo) Remaining() time.Duration {
	remaining := p.Duration - p.Position
	if remaining < 0 {
		return 0
	}
	return remaining
}
