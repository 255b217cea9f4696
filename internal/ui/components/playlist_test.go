package components

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dewi-tim/vidtui/internal/library"
	"github.com/dewi-tim/vidtui/internal/player"
)

func newTestPlaylist(paths ...string) Playlist {
	p := NewPlaylist()
	for _, path := range paths {
		p.Add(EntryFromPath(path))
	}
	return p
}

func paths(p Playlist) []string {
	var out []string
	for _, e := range p.Entries() {
		out = append(out, e.Path)
	}
	return out
}

func TestEntryFromPath(t *testing.T) {
	e := EntryFromPath("/videos/holiday/beach day.mp4")
	assert.Equal(t, "beach day", e.Title)
	assert.Equal(t, "holiday", e.Collection)
	assert.Zero(t, e.Duration)
}

func TestEntryFromVideo(t *testing.T) {
	v := library.Video{
		Media: player.Media{
			Path:     "/lib/show/e1.mkv",
			Title:    "Pilot",
			Width:    1280,
			Height:   720,
			Duration: 42 * time.Minute,
		},
		Collection: "show",
	}
	e := EntryFromVideo(v)
	assert.Equal(t, Entry{
		Path:       "/lib/show/e1.mkv",
		Title:      "Pilot",
		Collection: "show",
		Resolution: "1280x720",
		Duration:   42 * time.Minute,
	}, e)
}

func TestPlaylist_AddReturnsFirstIndex(t *testing.T) {
	p := NewPlaylist()
	assert.True(t, p.IsEmpty())
	assert.Equal(t, 0, p.Add(EntryFromPath("/a.mkv")))
	assert.Equal(t, 1, p.Add(EntryFromPath("/b.mkv"), EntryFromPath("/c.mkv")))
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, -1, p.CurrentIndex())
	assert.Nil(t, p.Current())
	assert.Nil(t, p.Get(3))
}

func TestPlaylist_NextPrev(t *testing.T) {
	p := newTestPlaylist("/a.mkv", "/b.mkv", "/c.mkv")

	assert.Equal(t, 0, p.Next())
	assert.Equal(t, 1, p.Next())
	assert.Equal(t, 2, p.Next())
	assert.Equal(t, -1, p.Next())
	assert.Equal(t, 2, p.CurrentIndex())

	assert.Equal(t, 1, p.Prev())
	assert.Equal(t, 0, p.Prev())
	assert.Equal(t, -1, p.Prev())

	empty := NewPlaylist()
	assert.Equal(t, -1, empty.Next())
	assert.Equal(t, -1, empty.Prev())
}

func TestPlaylist_LoopModes(t *testing.T) {
	p := newTestPlaylist("/a.mkv", "/b.mkv")
	p.SetCurrent(1)

	p.CycleLoopMode()
	require.Equal(t, LoopOne, p.LoopMode())
	assert.Equal(t, 1, p.Next())
	assert.Equal(t, 1, p.Next())
	assert.Equal(t, "Playlist [2/2] loop:1", p.Title())

	p.CycleLoopMode()
	require.Equal(t, LoopAll, p.LoopMode())
	assert.Equal(t, 0, p.Next())
	assert.Equal(t, 1, p.Prev())
	assert.Equal(t, 0, p.Prev())
	assert.Equal(t, 1, p.Prev())

	p.CycleLoopMode()
	assert.Equal(t, LoopNone, p.LoopMode())
	assert.Equal(t, "-", p.LoopModeString())
}

func TestPlaylist_RemoveSelectedTracksCurrent(t *testing.T) {
	p := newTestPlaylist("/a.mkv", "/b.mkv", "/c.mkv")
	p.SetCurrent(2)

	p.table.SetCursor(0)
	p.RemoveSelected()
	assert.Equal(t, []string{"/b.mkv", "/c.mkv"}, paths(p))
	assert.Equal(t, 1, p.CurrentIndex())

	p.table.SetCursor(1)
	p.RemoveSelected()
	assert.Equal(t, []string{"/b.mkv"}, paths(p))
	assert.Equal(t, -1, p.CurrentIndex())

	p.Clear()
	assert.True(t, p.IsEmpty())
	assert.Equal(t, "Playlist", p.Title())
}

func TestPlaylist_MoveKeepsCurrent(t *testing.T) {
	p := newTestPlaylist("/a.mkv", "/b.mkv", "/c.mkv")
	p.SetCurrent(0)

	p.table.SetCursor(0)
	p.MoveDown()
	assert.Equal(t, []string{"/b.mkv", "/a.mkv", "/c.mkv"}, paths(p))
	assert.Equal(t, 1, p.CurrentIndex())
	assert.Equal(t, 1, p.SelectedIndex())

	p.MoveUp()
	assert.Equal(t, []string{"/a.mkv", "/b.mkv", "/c.mkv"}, paths(p))
	assert.Equal(t, 0, p.CurrentIndex())

	// Already at the top.
	p.MoveUp()
	assert.Equal(t, []string{"/a.mkv", "/b.mkv", "/c.mkv"}, paths(p))
}

func TestPlaylist_ShuffleKeepsPlayingEntry(t *testing.T) {
	p := newTestPlaylist("/a.mkv", "/b.mkv", "/c.mkv", "/d.mkv", "/e.mkv")
	p.SetCurrent(3)

	p.Shuffle()

	assert.ElementsMatch(t, []string{"/a.mkv", "/b.mkv", "/c.mkv", "/d.mkv", "/e.mkv"}, paths(p))
	require.NotNil(t, p.Current())
	assert.Equal(t, "/d.mkv", p.Current().Path)
}

func TestPlaylist_SelectEmitsPlay(t *testing.T) {
	p := newTestPlaylist("/a.mkv", "/b.mkv")

	// Unfocused playlists ignore keys.
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	p.Focus()
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, cmd = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, PlaylistPlayMsg{Index: 1}, cmd())
}
