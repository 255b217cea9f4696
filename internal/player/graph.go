package player

import (
	"time"

	"emperror.dev/errors"
)

// GraphState is a state of the framework's own state machine.
type GraphState int

const (
	GraphNull GraphState = iota
	GraphReady
	GraphPaused
	GraphPlaying
)

// String returns the framework-style name of the state.
func (s GraphState) String() string {
	switch s {
	case GraphNull:
		return "NULL"
	case GraphReady:
		return "READY"
	case GraphPaused:
		return "PAUSED"
	case GraphPlaying:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

// MessageKind identifies a bus message.
type MessageKind int

const (
	MessageNone MessageKind = iota
	MessageEOS
	MessageError
	MessageWarning
	MessageStateChanged
	MessageDurationChanged
)

// String returns a short name for the message kind.
func (k MessageKind) String() string {
	switch k {
	case MessageEOS:
		return "eos"
	case MessageError:
		return "error"
	case MessageWarning:
		return "warning"
	case MessageStateChanged:
		return "state-changed"
	case MessageDurationChanged:
		return "duration-changed"
	default:
		return "none"
	}
}

// Message is a bus message posted by the graph.
type Message struct {
	Kind  MessageKind
	Text  string // error or warning text
	Debug string // framework debug detail

	// Set for MessageStateChanged.
	OldState GraphState
	NewState GraphState
}

// Graph is a processing graph built and owned by an external framework.
// The topology is fixed when the graph is opened; the adapter only drives
// its state and issues queries and seeks.
type Graph interface {
	// SetWindowHandle directs rendered video into the given window surface.
	SetWindowHandle(handle uintptr) error
	// SetState requests a state transition of the whole graph.
	SetState(state GraphState) error

	// QueryDuration returns the stream duration, false if unknown.
	QueryDuration() (time.Duration, bool)
	// QueryPosition returns the current stream position, false if unknown.
	QueryPosition() (time.Duration, bool)

	// SeekRate changes the playback rate, anchored at the current position.
	SeekRate(rate float64) error
	// SeekTo performs a flushing seek to pos, keeping the given rate.
	SeekTo(pos time.Duration, rate float64) error

	// PopMessage waits up to timeout for the next bus message. It may run
	// concurrently with Close and reports no message once closed.
	PopMessage(timeout time.Duration) (Message, bool)

	// Close releases the graph. Calls made after Close must not touch
	// the released framework objects: queries report false, everything
	// else returns an error.
	Close() error
}

// Backend opens graphs for media locations.
type Backend interface {
	Name() string
	Open(location string) (Graph, error)
}

// Errors returned by the player.
var (
	ErrClosed      = errors.New("player: closed")
	ErrInvalidRate = errors.New("player: playback rate must not be zero")
	ErrNoBackend   = errors.New("player: no backend")
)
