package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithComponent_AttachesFields(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test"})

	l := WithComponent("player")
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "player", entry["component"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "hello", entry["message"])
}

func TestConfigure_FirstCallWins(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Configure(Config{Output: &first})
	Configure(Config{Output: &second})

	l := Base()
	l.Info().Msg("x")

	assert.NotZero(t, first.Len())
	assert.Zero(t, second.Len())
}
