package playertest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dewi-tim/vidtui/internal/player"
)

func TestFakeGraph_PopAfterClose(t *testing.T) {
	g := NewFakeGraph(time.Minute)
	g.Post(player.Message{Kind: player.MessageEOS})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		g.PopMessage(time.Millisecond)
	}()
	require.NoError(t, g.Close())
	wg.Wait()

	g.Post(player.Message{Kind: player.MessageEOS})
	_, ok := g.PopMessage(time.Millisecond)
	assert.False(t, ok)
}

func TestFakeBackend_Setup(t *testing.T) {
	b := &FakeBackend{Setup: func(g *FakeGraph) { g.FailSeek = true }}

	pg, err := b.Open("/videos/a.mkv")
	require.NoError(t, err)
	assert.Same(t, pg, b.Last())
	assert.ErrorIs(t, pg.SeekRate(2), ErrQueryFailed)
}
