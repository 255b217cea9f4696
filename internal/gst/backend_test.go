package gst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBackend_DefaultSink(t *testing.T) {
	assert.Equal(t, DefaultSink, NewBackend("").Sink)
	assert.Equal(t, "glimagesink", NewBackend("glimagesink").Sink)
	assert.Equal(t, "gstreamer", NewBackend("").Name())
}

func TestNewDiscoverer_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultProbeTimeout, NewDiscoverer(0).Timeout)
}
