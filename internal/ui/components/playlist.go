package components

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/vidtui/internal/library"
)

// Entry is a queued video.
type Entry struct {
	Path       string
	Title      string
	Collection string
	Resolution string
	Duration   time.Duration
}

// EntryFromVideo converts a library video to a playlist entry.
func EntryFromVideo(v library.Video) Entry {
	return Entry{
		Path:       v.Path,
		Title:      v.Title,
		Collection: v.Collection,
		Resolution: v.Resolution(),
		Duration:   v.Duration,
	}
}

// EntryFromPath builds an entry for a file picked outside the library.
func EntryFromPath(path string) Entry {
	return Entry{
		Path:       path,
		Title:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Collection: filepath.Base(filepath.Dir(path)),
	}
}

// PlaylistKeyMap defines keybindings for the playlist component.
type PlaylistKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Select   key.Binding
	Remove   key.Binding
	Clear    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Shuffle  key.Binding
	LoopMode key.Binding
}

// DefaultPlaylistKeyMap returns the default keybindings for the playlist.
func DefaultPlaylistKeyMap() PlaylistKeyMap {
	return PlaylistKeyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "down")),
		Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Select:   key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter/l", "play")),
		Remove:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove")),
		Clear:    key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "clear")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		MoveUp:   key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "move up")),
		MoveDown: key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "move down")),
		Shuffle:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "shuffle")),
		LoopMode: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "loop mode")),
	}
}

// LoopMode represents the playlist loop behavior.
type LoopMode int

const (
	LoopNone LoopMode = iota // stop at the end
	LoopOne                  // repeat the current video
	LoopAll                  // wrap around
)

// PlaylistPlayMsg asks the model to play the entry at Index.
type PlaylistPlayMsg struct {
	Index int
}

// Playlist is the queue of videos to play.
type Playlist struct {
	table   table.Model
	entries []Entry
	current int // playing index, -1 if none
	focused bool

	keyMap   PlaylistKeyMap
	loopMode LoopMode

	width  int
	height int
}

// NewPlaylist creates an empty playlist.
func NewPlaylist() Playlist {
	t := table.New(
		table.WithColumns(playlistColumns(40)),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
		table.WithHeight(5),
	)

	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#A0A0A0")).
		Padding(0, 1)
	s.Cell = lipgloss.NewStyle().
		Padding(0, 1)
	s.Selected = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7571F9"))
	t.SetStyles(s)

	return Playlist{
		table:   t,
		entries: []Entry{},
		current: -1,
		keyMap:  DefaultPlaylistKeyMap(),
		width:   40,
		height:  10,
	}
}

// playlistColumns lays out the table for the given inner width.
// #: 5 (index with "> " marker), Length: 8, Size: 9, Collection: ~25%, Title: rest.
func playlistColumns(width int) []table.Column {
	if width < 40 {
		width = 40
	}
	numWidth, lengthWidth, sizeWidth := 5, 8, 9
	collectionWidth := width * 25 / 100
	if collectionWidth < 8 {
		collectionWidth = 8
	}
	titleWidth := width - numWidth - lengthWidth - sizeWidth - collectionWidth
	if titleWidth < 10 {
		titleWidth = 10
	}
	return []table.Column{
		{Title: "#", Width: numWidth},
		{Title: "Length", Width: lengthWidth},
		{Title: "Title", Width: titleWidth},
		{Title: "Size", Width: sizeWidth},
		{Title: "Collection", Width: collectionWidth},
	}
}

// Update handles messages for the playlist.
func (p Playlist) Update(msg tea.Msg) (Playlist, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}

	switch {
	case key.Matches(keyMsg, p.keyMap.Up):
		p.table.MoveUp(1)
	case key.Matches(keyMsg, p.keyMap.Down):
		p.table.MoveDown(1)
	case key.Matches(keyMsg, p.keyMap.Top):
		p.table.GotoTop()
	case key.Matches(keyMsg, p.keyMap.Bottom):
		p.table.GotoBottom()
	case key.Matches(keyMsg, p.keyMap.PageUp):
		p.table.MoveUp(p.table.Height())
	case key.Matches(keyMsg, p.keyMap.PageDown):
		p.table.MoveDown(p.table.Height())
	case key.Matches(keyMsg, p.keyMap.MoveUp):
		p.MoveUp()
	case key.Matches(keyMsg, p.keyMap.MoveDown):
		p.MoveDown()
	case key.Matches(keyMsg, p.keyMap.Remove):
		p.RemoveSelected()
	case key.Matches(keyMsg, p.keyMap.Clear):
		p.Clear()
	case key.Matches(keyMsg, p.keyMap.Shuffle):
		p.Shuffle()
	case key.Matches(keyMsg, p.keyMap.LoopMode):
		p.CycleLoopMode()
	case key.Matches(keyMsg, p.keyMap.Select):
		if len(p.entries) == 0 {
			return p, nil
		}
		idx := p.table.Cursor()
		return p, func() tea.Msg { return PlaylistPlayMsg{Index: idx} }
	}
	return p, nil
}

// View renders the playlist.
func (p Playlist) View() string {
	return p.table.View()
}

// SetSize sets the size of the playlist component.
func (p *Playlist) SetSize(width, height int) {
	p.width = width
	p.height = height

	inner := width - 6 // borders and padding
	p.table.SetColumns(playlistColumns(inner))
	p.table.SetWidth(inner)

	// Minus header row and borders
	tableHeight := height - 4
	if tableHeight < 1 {
		tableHeight = 1
	}
	p.table.SetHeight(tableHeight)
}

// Focus sets the playlist to focused state.
func (p *Playlist) Focus() {
	p.focused = true
	p.table.Focus()
}

// Blur removes focus from the playlist.
func (p *Playlist) Blur() {
	p.focused = false
	p.table.Blur()
}

// Focused returns whether the playlist is focused.
func (p Playlist) Focused() bool {
	return p.focused
}

// Add appends entries and returns the index of the first one added.
func (p *Playlist) Add(entries ...Entry) int {
	first := len(p.entries)
	p.entries = append(p.entries, entries...)
	p.updateTableRows()
	return first
}

// RemoveSelected removes the highlighted entry.
func (p *Playlist) RemoveSelected() {
	idx := p.table.Cursor()
	if idx < 0 || idx >= len(p.entries) {
		return
	}

	p.entries = append(p.entries[:idx], p.entries[idx+1:]...)

	switch {
	case p.current > idx:
		p.current--
	case p.current == idx:
		p.current = -1
	}

	p.updateTableRows()
	if idx >= len(p.entries) && len(p.entries) > 0 {
		p.table.SetCursor(len(p.entries) - 1)
	}
}

// Clear removes all entries.
func (p *Playlist) Clear() {
	p.entries = []Entry{}
	p.current = -1
	p.updateTableRows()
}

// SetCurrent marks the entry at index as playing; out of range clears it.
func (p *Playlist) SetCurrent(index int) {
	if index < 0 || index >= len(p.entries) {
		index = -1
	}
	p.current = index
	p.updateTableRows()
}

// SelectedIndex returns the highlighted index.
func (p Playlist) SelectedIndex() int {
	return p.table.Cursor()
}

// Get returns a copy of the entry at index, or nil if out of range.
func (p Playlist) Get(index int) *Entry {
	if index < 0 || index >= len(p.entries) {
		return nil
	}
	e := p.entries[index]
	return &e
}

// Current returns a copy of the playing entry, or nil.
func (p Playlist) Current() *Entry {
	return p.Get(p.current)
}

// CurrentIndex returns the playing index (-1 if none).
func (p Playlist) CurrentIndex() int {
	return p.current
}

// Len returns the number of entries.
func (p Playlist) Len() int {
	return len(p.entries)
}

// Entries returns a copy of all entries.
func (p Playlist) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *Playlist) updateTableRows() {
	saved := p.table.Cursor()

	rows := make([]table.Row, len(p.entries))
	for i, e := range p.entries {
		num := fmt.Sprintf(" %d", i+1)
		if i == p.current {
			num = fmt.Sprintf(">%d", i+1)
		}
		length := "--:--"
		if e.Duration > 0 {
			length = formatDuration(e.Duration)
		}
		rows[i] = table.Row{num, length, e.Title, e.Resolution, e.Collection}
	}
	p.table.SetRows(rows)

	if saved >= 0 && saved < len(rows) {
		p.table.SetCursor(saved)
	} else if len(rows) > 0 {
		p.table.SetCursor(0)
	}
}

// Title returns the panel title with position info.
func (p Playlist) Title() string {
	loop := ""
	if p.loopMode != LoopNone {
		loop = " loop:" + p.LoopModeString()
	}
	switch {
	case len(p.entries) == 0:
		return "Playlist" + loop
	case p.current >= 0:
		return fmt.Sprintf("Playlist [%d/%d]%s", p.current+1, len(p.entries), loop)
	default:
		return fmt.Sprintf("Playlist [%d]%s", len(p.entries), loop)
	}
}

// IsEmpty reports whether the playlist has no entries.
func (p Playlist) IsEmpty() bool {
	return len(p.entries) == 0
}

// Next advances the playing index and returns it, or -1 at the end.
// LoopOne repeats the current entry; LoopAll wraps around.
func (p *Playlist) Next() int {
	if len(p.entries) == 0 {
		return -1
	}
	switch {
	case p.current < 0:
		p.current = 0
	case p.loopMode == LoopOne:
	case p.current < len(p.entries)-1:
		p.current++
	case p.loopMode == LoopAll:
		p.current = 0
	default:
		return -1
	}
	p.updateTableRows()
	return p.current
}

// Prev moves the playing index back and returns it, or -1 at the start.
func (p *Playlist) Prev() int {
	if len(p.entries) == 0 {
		return -1
	}
	switch {
	case p.current > 0:
		p.current--
	case p.loopMode == LoopAll:
		p.current = len(p.entries) - 1
	default:
		return -1
	}
	p.updateTableRows()
	return p.current
}

// MoveUp moves the highlighted entry up.
func (p *Playlist) MoveUp() {
	idx := p.table.Cursor()
	if idx <= 0 || idx >= len(p.entries) {
		return
	}
	p.swap(idx, idx-1)
	p.table.SetCursor(idx - 1)
}

// MoveDown moves the highlighted entry down.
func (p *Playlist) MoveDown() {
	idx := p.table.Cursor()
	if idx < 0 || idx >= len(p.entries)-1 {
		return
	}
	p.swap(idx, idx+1)
	p.table.SetCursor(idx + 1)
}

func (p *Playlist) swap(i, j int) {
	p.entries[i], p.entries[j] = p.entries[j], p.entries[i]
	switch p.current {
	case i:
		p.current = j
	case j:
		p.current = i
	}
	p.updateTableRows()
}

// Shuffle randomizes the order, keeping track of the playing entry.
func (p *Playlist) Shuffle() {
	if len(p.entries) <= 1 {
		return
	}

	var playing string
	if p.current >= 0 {
		playing = p.entries[p.current].Path
	}

	rand.Shuffle(len(p.entries), func(i, j int) {
		p.entries[i], p.entries[j] = p.entries[j], p.entries[i]
	})

	if playing != "" {
		for i, e := range p.entries {
			if e.Path == playing {
				p.current = i
				break
			}
		}
	}
	p.updateTableRows()
}

// CycleLoopMode cycles None -> One -> All -> None.
func (p *Playlist) CycleLoopMode() {
	p.loopMode = (p.loopMode + 1) % 3
}

// LoopMode returns the current loop mode.
func (p Playlist) LoopMode() LoopMode {
	return p.loopMode
}

// LoopModeString returns a short label for the loop mode.
func (p Playlist) LoopModeString() string {
	switch p.loopMode {
	case LoopOne:
		return "1"
	case LoopAll:
		return "A"
	default:
		return "-"
	}
}
