package components

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/vidtui/internal/library"
)

// LibBrowserKeyMap defines key bindings for the library browser.
type LibBrowserKeyMap struct {
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	GoToTop    key.Binding
	GoToBottom key.Binding
	Enter      key.Binding // expand/collapse or select
	Back       key.Binding // collapse or go to parent
	AddAll     key.Binding // queue a whole collection
	Rescan     key.Binding
}

// DefaultLibBrowserKeyMap returns the default library browser key bindings.
func DefaultLibBrowserKeyMap() LibBrowserKeyMap {
	return LibBrowserKeyMap{
		Up:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "up")),
		Down:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "down")),
		PageUp:     key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdown", "page down")),
		GoToTop:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "top")),
		GoToBottom: key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "bottom")),
		Enter:      key.NewBinding(key.WithKeys("enter", "l", "right"), key.WithHelp("enter", "expand/select")),
		Back:       key.NewBinding(key.WithKeys("backspace", "h", "left"), key.WithHelp("backspace", "collapse")),
		AddAll:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add all")),
		Rescan:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "rescan")),
	}
}

// NodeType is the kind of tree node.
type NodeType int

const (
	NodeCollection NodeType = iota
	NodeVideo
)

// TreeNode is a node in the library tree.
type TreeNode struct {
	Type     NodeType
	Name     string
	Video    *library.Video // for NodeVideo
	Children []*TreeNode
	Expanded bool
	Parent   *TreeNode
}

// LibBrowserStyles contains styles for the library browser component.
type LibBrowserStyles struct {
	Cursor     lipgloss.Style
	Collection lipgloss.Style
	Video      lipgloss.Style
	Selected   lipgloss.Style
	Muted      lipgloss.Style
}

// DefaultLibBrowserStyles returns the default library browser styles.
func DefaultLibBrowserStyles() LibBrowserStyles {
	return LibBrowserStyles{
		Cursor:     lipgloss.NewStyle().Foreground(lipgloss.Color("#7571F9")).Bold(true),
		Collection: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Bold(true),
		Video:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")),
		Selected:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7571F9")).Bold(true),
		Muted:      lipgloss.NewStyle().Foreground(lipgloss.Color("#606060")),
	}
}

// LibraryScannedMsg reports a finished scan, from the browser or a watcher.
type LibraryScannedMsg struct {
	Count int
	Err   error
}

// LibVideosSelectedMsg carries videos to queue. Play asks for the first one
// to start immediately.
type LibVideosSelectedMsg struct {
	Videos []library.Video
	Play   bool
}

// LibBrowser is a collection/video tree over a Library.
type LibBrowser struct {
	lib  *library.Library
	root []*TreeNode

	flatList []*TreeNode

	selected int
	min      int
	max      int

	width  int
	height int

	focused bool
	keyMap  LibBrowserKeyMap
	styles  LibBrowserStyles

	scanning   bool
	videoCount int
	err        error
}

// NewLibBrowser creates a library browser.
func NewLibBrowser(lib *library.Library) *LibBrowser {
	return &LibBrowser{
		lib:      lib,
		root:     make([]*TreeNode, 0),
		flatList: make([]*TreeNode, 0),
		max:      10,
		width:    30,
		height:   10,
		keyMap:   DefaultLibBrowserKeyMap(),
		styles:   DefaultLibBrowserStyles(),
	}
}

// Init starts the first scan.
func (b *LibBrowser) Init() tea.Cmd {
	return b.Scan()
}

// Scan returns a command that rescans the library.
func (b *LibBrowser) Scan() tea.Cmd {
	b.scanning = true
	lib := b.lib
	return func() tea.Msg {
		n, err := lib.Scan(context.Background())
		return LibraryScannedMsg{Count: n, Err: err}
	}
}

// buildTree rebuilds the tree, keeping expanded collections expanded.
func (b *LibBrowser) buildTree() {
	expanded := make(map[string]bool)
	for _, n := range b.root {
		if n.Expanded {
			expanded[n.Name] = true
		}
	}

	b.root = make([]*TreeNode, 0)
	for _, name := range b.lib.Collections() {
		col := &TreeNode{
			Type:     NodeCollection,
			Name:     name,
			Expanded: expanded[name],
		}
		videos := b.lib.Videos(name)
		for i := range videos {
			col.Children = append(col.Children, &TreeNode{
				Type:   NodeVideo,
				Name:   videos[i].Title,
				Video:  &videos[i],
				Parent: col,
			})
		}
		b.root = append(b.root, col)
	}
	b.rebuildFlatList()
}

func (b *LibBrowser) rebuildFlatList() {
	b.flatList = make([]*TreeNode, 0)
	for _, col := range b.root {
		b.flatList = append(b.flatList, col)
		if col.Expanded {
			b.flatList = append(b.flatList, col.Children...)
		}
	}

	if b.selected >= len(b.flatList) {
		b.selected = len(b.flatList) - 1
	}
	if b.selected < 0 {
		b.selected = 0
	}
	b.updateViewport()
}

// Update handles messages and updates the browser state.
func (b *LibBrowser) Update(msg tea.Msg) (*LibBrowser, tea.Cmd) {
	switch msg := msg.(type) {
	case LibraryScannedMsg:
		b.scanning = false
		b.err = msg.Err
		if msg.Err == nil {
			b.videoCount = msg.Count
			b.buildTree()
		}
		return b, nil

	case tea.KeyMsg:
		if !b.focused {
			return b, nil
		}
		return b.handleKeyMsg(msg)
	}
	return b, nil
}

func (b *LibBrowser) handleKeyMsg(msg tea.KeyMsg) (*LibBrowser, tea.Cmd) {
	switch {
	case key.Matches(msg, b.keyMap.Up):
		b.moveTo(b.selected - 1)
	case key.Matches(msg, b.keyMap.Down):
		b.moveTo(b.selected + 1)
	case key.Matches(msg, b.keyMap.PageUp):
		b.moveTo(b.selected - b.visibleCount())
	case key.Matches(msg, b.keyMap.PageDown):
		b.moveTo(b.selected + b.visibleCount())
	case key.Matches(msg, b.keyMap.GoToTop):
		b.moveTo(0)
	case key.Matches(msg, b.keyMap.GoToBottom):
		b.moveTo(len(b.flatList) - 1)
	case key.Matches(msg, b.keyMap.Enter):
		return b.handleEnter()
	case key.Matches(msg, b.keyMap.Back):
		b.handleBack()
	case key.Matches(msg, b.keyMap.AddAll):
		return b.handleAddAll()
	case key.Matches(msg, b.keyMap.Rescan):
		if !b.scanning {
			return b, b.Scan()
		}
	}
	return b, nil
}

func (b *LibBrowser) handleEnter() (*LibBrowser, tea.Cmd) {
	node := b.SelectedNode()
	if node == nil {
		return b, nil
	}

	if node.Type == NodeCollection {
		node.Expanded = !node.Expanded
		b.rebuildFlatList()
		return b, nil
	}

	video := *node.Video
	return b, func() tea.Msg {
		return LibVideosSelectedMsg{Videos: []library.Video{video}, Play: true}
	}
}

func (b *LibBrowser) handleBack() {
	node := b.SelectedNode()
	if node == nil {
		return
	}
	if node.Expanded {
		node.Expanded = false
		b.rebuildFlatList()
		return
	}
	if node.Parent != nil {
		for i, n := range b.flatList {
			if n == node.Parent {
				b.moveTo(i)
				return
			}
		}
	}
}

func (b *LibBrowser) handleAddAll() (*LibBrowser, tea.Cmd) {
	node := b.SelectedNode()
	if node == nil {
		return b, nil
	}

	var videos []library.Video
	switch node.Type {
	case NodeCollection:
		videos = b.lib.Videos(node.Name)
	case NodeVideo:
		videos = []library.Video{*node.Video}
	}
	if len(videos) == 0 {
		return b, nil
	}
	return b, func() tea.Msg {
		return LibVideosSelectedMsg{Videos: videos}
	}
}

func (b *LibBrowser) moveTo(i int) {
	if i >= len(b.flatList) {
		i = len(b.flatList) - 1
	}
	if i < 0 {
		i = 0
	}
	b.selected = i
	b.updateViewport()
}

func (b *LibBrowser) visibleCount() int {
	count := b.height - 1 // status line
	if count < 1 {
		count = 1
	}
	return count
}

func (b *LibBrowser) updateViewport() {
	visible := b.visibleCount()
	if b.selected < b.min {
		b.min = b.selected
	}
	if b.selected > b.min+visible-1 {
		b.min = b.selected - visible + 1
	}
	if b.min > len(b.flatList)-visible {
		b.min = len(b.flatList) - visible
	}
	if b.min < 0 {
		b.min = 0
	}
	b.max = b.min + visible - 1
	if b.max >= len(b.flatList) {
		b.max = len(b.flatList) - 1
	}
}

// View renders the library browser.
func (b *LibBrowser) View() string {
	var s strings.Builder

	if b.scanning {
		s.WriteString(b.styles.Muted.Render(fmt.Sprintf("Scanning %s...", b.lib.Root())))
		return constrainToHeight(s.String(), b.height)
	}
	if b.err != nil {
		s.WriteString(b.styles.Muted.Render("Scan failed: " + b.err.Error()))
		return constrainToHeight(s.String(), b.height)
	}

	s.WriteString(b.styles.Muted.Render(fmt.Sprintf("%d videos in %s", b.videoCount, b.lib.Root())))
	s.WriteRune('\n')

	if len(b.flatList) == 0 {
		s.WriteString(b.styles.Muted.Render("No videos found"))
		return constrainToHeight(s.String(), b.height)
	}

	for i := b.min; i <= b.max && i < len(b.flatList); i++ {
		node := b.flatList[i]
		isSelected := i == b.selected

		cursor := "  "
		if isSelected {
			cursor = b.styles.Cursor.Render("> ")
		}

		var content, indent string
		style := b.styles.Collection
		switch node.Type {
		case NodeCollection:
			marker := "[+]"
			if node.Expanded {
				marker = "[-]"
			}
			content = fmt.Sprintf("%s %s (%d)", marker, node.Name, len(node.Children))
		case NodeVideo:
			indent = "  "
			style = b.styles.Video
			content = " -  " + node.Name
			if res := node.Video.Resolution(); res != "" {
				content += " " + res
			}
		}
		if isSelected {
			style = b.styles.Selected
		}

		maxWidth := b.width - 2 - len(indent) - 2
		if maxWidth < 10 {
			maxWidth = 10
		}
		content = fitName(content, maxWidth, false)

		s.WriteString(cursor + indent + style.Render(content))
		s.WriteRune('\n')
	}

	return constrainToHeight(s.String(), b.height)
}

// SetSize sets the browser dimensions.
func (b *LibBrowser) SetSize(width, height int) {
	b.width = width
	b.height = height
	b.updateViewport()
}

// Focus sets the browser as focused.
func (b *LibBrowser) Focus() {
	b.focused = true
}

// Blur removes focus from the browser.
func (b *LibBrowser) Blur() {
	b.focused = false
}

// IsFocused returns whether the browser is focused.
func (b *LibBrowser) IsFocused() bool {
	return b.focused
}

// SelectedNode returns the highlighted node, or nil.
func (b *LibBrowser) SelectedNode() *TreeNode {
	if b.selected < 0 || b.selected >= len(b.flatList) {
		return nil
	}
	return b.flatList[b.selected]
}
