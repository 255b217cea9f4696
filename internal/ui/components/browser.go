package components

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/vidtui/internal/library"
)

// BrowserKeyMap defines key bindings for the browser.
type BrowserKeyMap struct {
	Up           key.Binding
	Down         key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	GoToTop      key.Binding
	GoToBottom   key.Binding
	Open         key.Binding
	Back         key.Binding
	ToggleHidden key.Binding
}

// DefaultBrowserKeyMap returns the default browser key bindings.
func DefaultBrowserKeyMap() BrowserKeyMap {
	return BrowserKeyMap{
		Up:           key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "up")),
		Down:         key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "down")),
		PageUp:       key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:     key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdown", "page down")),
		GoToTop:      key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "top")),
		GoToBottom:   key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "bottom")),
		Open:         key.NewBinding(key.WithKeys("enter", "l", "right"), key.WithHelp("enter", "select")),
		Back:         key.NewBinding(key.WithKeys("backspace", "h", "left"), key.WithHelp("backspace", "parent")),
		ToggleHidden: key.NewBinding(key.WithKeys("."), key.WithHelp(".", "hidden")),
	}
}

// FileEntry is a file or directory listed by the browser.
type FileEntry struct {
	Name  string
	Path  string
	IsDir bool
	Size  int64
}

// BrowserStyles contains styles for the browser component.
type BrowserStyles struct {
	Cursor      lipgloss.Style
	Directory   lipgloss.Style
	VideoFile   lipgloss.Style
	Selected    lipgloss.Style
	SelectedDir lipgloss.Style
	Muted       lipgloss.Style
	EmptyDir    lipgloss.Style
}

// DefaultBrowserStyles returns the default browser styles.
func DefaultBrowserStyles() BrowserStyles {
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color("#7571F9")).Bold(true)
	return BrowserStyles{
		Cursor:      accent,
		Directory:   lipgloss.NewStyle().Foreground(lipgloss.Color("#99CCFF")),
		VideoFile:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")),
		Selected:    accent,
		SelectedDir: accent,
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#606060")),
		EmptyDir:    lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0")).Italic(true),
	}
}

// FileSelectedMsg is sent when a video file is chosen.
type FileSelectedMsg struct {
	Path string
}

// BrowserReadDirMsg carries the listing of Dir. SelectName, when set, is
// highlighted once the listing arrives.
type BrowserReadDirMsg struct {
	Dir        string
	Entries    []FileEntry
	SelectName string
	Err        error
}

// Browser navigates the filesystem and picks video files.
type Browser struct {
	currentDir string
	entries    []FileEntry

	selected int
	min      int // first visible index
	max      int // last visible index

	width  int
	height int

	focused    bool
	showHidden bool
	err        error

	KeyMap BrowserKeyMap
	Styles BrowserStyles
}

// NewBrowser creates a browser starting at startDir, or the home directory.
func NewBrowser(startDir string) Browser {
	if startDir == "" {
		startDir, _ = os.UserHomeDir()
		if startDir == "" {
			startDir = "/"
		}
	}
	if abs, err := filepath.Abs(startDir); err == nil {
		startDir = abs
	}

	return Browser{
		currentDir: startDir,
		entries:    []FileEntry{},
		max:        10,
		width:      30,
		height:     10,
		KeyMap:     DefaultBrowserKeyMap(),
		Styles:     DefaultBrowserStyles(),
	}
}

// Init returns the command reading the start directory.
func (b Browser) Init() tea.Cmd {
	return b.readDir(b.currentDir, "")
}

func (b Browser) readDir(path, selectName string) tea.Cmd {
	showHidden := b.showHidden
	return func() tea.Msg {
		entries, err := readDirFiltered(path, showHidden)
		return BrowserReadDirMsg{Dir: path, Entries: entries, SelectName: selectName, Err: err}
	}
}

// readDirFiltered lists directories and video files, directories first.
func readDirFiltered(path string, showHidden bool) ([]FileEntry, error) {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var entries []FileEntry
	for _, de := range dirEntries {
		name := de.Name()
		if !showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if !de.IsDir() && !library.IsVideoFile(name) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, FileEntry{
			Name:  name,
			Path:  filepath.Join(path, name),
			IsDir: de.IsDir(),
			Size:  info.Size(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

// Update handles messages and updates the browser state.
func (b Browser) Update(msg tea.Msg) (Browser, tea.Cmd) {
	switch msg := msg.(type) {
	case BrowserReadDirMsg:
		if msg.Err != nil {
			b.err = msg.Err
			return b, nil
		}
		b.currentDir = msg.Dir
		b.entries = msg.Entries
		b.err = nil
		b.selected = 0
		for i, e := range b.entries {
			if msg.SelectName != "" && e.Name == msg.SelectName {
				b.selected = i
				break
			}
		}
		b.updateViewport()
		return b, nil

	case tea.KeyMsg:
		if !b.focused {
			return b, nil
		}
		return b.handleKeyMsg(msg)
	}
	return b, nil
}

func (b Browser) handleKeyMsg(msg tea.KeyMsg) (Browser, tea.Cmd) {
	switch {
	case key.Matches(msg, b.KeyMap.Up):
		b.moveTo(b.selected - 1)
	case key.Matches(msg, b.KeyMap.Down):
		b.moveTo(b.selected + 1)
	case key.Matches(msg, b.KeyMap.PageUp):
		b.moveTo(b.selected - b.visibleCount())
	case key.Matches(msg, b.KeyMap.PageDown):
		b.moveTo(b.selected + b.visibleCount())
	case key.Matches(msg, b.KeyMap.GoToTop):
		b.moveTo(0)
	case key.Matches(msg, b.KeyMap.GoToBottom):
		b.moveTo(len(b.entries) - 1)
	case key.Matches(msg, b.KeyMap.Open):
		return b.openSelected()
	case key.Matches(msg, b.KeyMap.Back):
		return b.goToParent()
	case key.Matches(msg, b.KeyMap.ToggleHidden):
		b.showHidden = !b.showHidden
		name := ""
		if e := b.SelectedEntry(); e != nil {
			name = e.Name
		}
		return b, b.readDir(b.currentDir, name)
	}
	return b, nil
}

// moveTo selects index i, clamped to the listing.
func (b *Browser) moveTo(i int) {
	if i >= len(b.entries) {
		i = len(b.entries) - 1
	}
	if i < 0 {
		i = 0
	}
	b.selected = i
	b.updateViewport()
}

func (b Browser) openSelected() (Browser, tea.Cmd) {
	entry := b.SelectedEntry()
	if entry == nil {
		return b, nil
	}
	if entry.IsDir {
		return b, b.readDir(entry.Path, "")
	}
	path := entry.Path
	return b, func() tea.Msg { return FileSelectedMsg{Path: path} }
}

func (b Browser) goToParent() (Browser, tea.Cmd) {
	parent := filepath.Dir(b.currentDir)
	if parent == b.currentDir {
		return b, nil
	}
	// Land on the directory we came from.
	return b, b.readDir(parent, filepath.Base(b.currentDir))
}

func (b Browser) visibleCount() int {
	count := b.height - 2 // header line and padding
	if count < 1 {
		count = 1
	}
	return count
}

// updateViewport keeps the selection inside [min, max].
func (b *Browser) updateViewport() {
	visible := b.visibleCount()
	if b.selected < b.min {
		b.min = b.selected
	}
	if b.selected > b.min+visible-1 {
		b.min = b.selected - visible + 1
	}
	if b.min > len(b.entries)-visible {
		b.min = len(b.entries) - visible
	}
	if b.min < 0 {
		b.min = 0
	}
	b.max = b.min + visible - 1
	if b.max >= len(b.entries) {
		b.max = len(b.entries) - 1
	}
}

// View renders the browser.
func (b Browser) View() string {
	var s strings.Builder

	nameWidth := b.width - 2 // cursor
	if nameWidth < 5 {
		nameWidth = 5
	}

	s.WriteString(b.Styles.Muted.Render(truncateLeft(b.currentDir, b.width-2)))
	s.WriteRune('\n')

	if b.err != nil {
		s.WriteString(b.Styles.Muted.Render("Error: " + b.err.Error()))
		return constrainToHeight(s.String(), b.height)
	}
	if len(b.entries) == 0 {
		s.WriteString(b.Styles.EmptyDir.Render("(no videos)"))
		return constrainToHeight(s.String(), b.height)
	}

	for i := b.min; i <= b.max && i < len(b.entries); i++ {
		entry := b.entries[i]
		isSelected := i == b.selected

		cursor := "  "
		if isSelected {
			cursor = b.Styles.Cursor.Render("> ")
		}

		name := entry.Name
		if entry.IsDir {
			name = "[" + name + "]"
		}
		name = fitName(name, nameWidth, isSelected)

		var style lipgloss.Style
		switch {
		case entry.IsDir && isSelected:
			style = b.Styles.SelectedDir
		case entry.IsDir:
			style = b.Styles.Directory
		case isSelected:
			style = b.Styles.Selected
		default:
			style = b.Styles.VideoFile
		}

		s.WriteString(cursor + style.Render(name))
		s.WriteRune('\n')
	}

	return constrainToHeight(s.String(), b.height)
}

// fitName truncates long names. Selected names keep their end visible.
func fitName(name string, maxWidth int, keepEnd bool) string {
	if len(name) <= maxWidth {
		return name
	}
	visible := maxWidth - 3
	if visible < 1 {
		visible = 1
	}
	if keepEnd {
		return "..." + name[len(name)-visible:]
	}
	return name[:visible] + "..."
}

func truncateLeft(s string, maxLen int) string {
	if maxLen < 10 {
		maxLen = 10
	}
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen+3:]
}

// constrainToHeight truncates or pads content to exactly height lines.
func constrainToHeight(content string, height int) string {
	if height <= 0 {
		return content
	}

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// SetSize sets the browser dimensions.
func (b *Browser) SetSize(width, height int) {
	b.width = width
	b.height = height
	b.updateViewport()
}

// Focus sets the browser as focused.
func (b *Browser) Focus() {
	b.focused = true
}

// Blur removes focus from the browser.
func (b *Browser) Blur() {
	b.focused = false
}

// IsFocused returns whether the browser is focused.
func (b Browser) IsFocused() bool {
	return b.focused
}

// CurrentDir returns the current directory path.
func (b Browser) CurrentDir() string {
	return b.currentDir
}

// SelectedEntry returns the highlighted entry, or nil.
func (b Browser) SelectedEntry() *FileEntry {
	if b.selected < 0 || b.selected >= len(b.entries) {
		return nil
	}
	entry := b.entries[b.selected]
	return &entry
}
