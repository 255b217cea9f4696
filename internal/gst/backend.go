package gst

import (
	"time"

	"emperror.dev/errors"

	"github.com/dewi-tim/vidtui/internal/player"
)

// DefaultSink is the video sink factory used when none is configured.
const DefaultSink = "xvimagesink"

// DefaultProbeTimeout bounds a single discoverer run.
const DefaultProbeTimeout = 5 * time.Second

// StateChangeTimeout bounds how long SetState waits for the pipeline to
// preroll. A change still pending after it is left to complete in the
// background.
const StateChangeTimeout = 5 * time.Second

// Errors returned by the binding.
var (
	ErrElement     = errors.New("gst: could not create element")
	ErrLink        = errors.New("gst: could not link elements")
	ErrStateChange = errors.New("gst: state change failed")
	ErrSeek        = errors.New("gst: seek failed")
	ErrNoOverlay   = errors.New("gst: sink does not accept a window handle")
	ErrProbe       = errors.New("gst: could not discover media")
	ErrCGORequired = errors.New("gst: built without cgo")
)

// Backend opens GStreamer graphs for local files.
type Backend struct {
	Sink string
}

// NewBackend returns a backend rendering through the given sink factory.
func NewBackend(sink string) *Backend {
	if sink == "" {
		sink = DefaultSink
	}
	return &Backend{Sink: sink}
}

// Name implements player.Backend.
func (b *Backend) Name() string {
	return "gstreamer"
}

// Open implements player.Backend.
func (b *Backend) Open(location string) (player.Graph, error) {
	g, err := NewGraph(location, b.Sink)
	if err != nil {
		return nil, errors.WithDetails(err, "location", location)
	}
	return g, nil
}

var _ player.Backend = (*Backend)(nil)
