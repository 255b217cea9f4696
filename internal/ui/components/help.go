package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpSection is one titled group of bindings in the help popup.
type HelpSection struct {
	Title    string
	Bindings []key.Binding
}

// HelpKeyMap defines key bindings for the help popup.
type HelpKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Close    key.Binding
}

// DefaultHelpKeyMap returns the default help popup key bindings.
func DefaultHelpKeyMap() HelpKeyMap {
	return HelpKeyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "scroll up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "scroll down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Close:    key.NewBinding(key.WithKeys("?", "esc", "enter", "q"), key.WithHelp("?/esc/enter", "close")),
	}
}

// HelpPopup is a centered overlay listing key bindings.
type HelpPopup struct {
	viewport viewport.Model
	sections []HelpSection
	keyMap   HelpKeyMap
	visible  bool
	width    int
	height   int

	borderStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	categoryStyle lipgloss.Style
	keyStyle      lipgloss.Style
	descStyle     lipgloss.Style
	footerStyle   lipgloss.Style
}

// NewHelpPopup creates a help popup over the given sections.
func NewHelpPopup(sections ...HelpSection) HelpPopup {
	vp := viewport.New(50, 20)
	vp.MouseWheelEnabled = true

	return HelpPopup{
		viewport: vp,
		sections: sections,
		keyMap:   DefaultHelpKeyMap(),
		width:    60,
		height:   24,
		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7571F9")),
		titleStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7571F9")).Bold(true),
		categoryStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Bold(true),
		keyStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("#7571F9")).Bold(true),
		descStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")),
		footerStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0")).Italic(true),
	}
}

// Update handles messages while the popup is visible.
func (h HelpPopup) Update(msg tea.Msg) (HelpPopup, tea.Cmd) {
	if !h.visible {
		return h, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, h.keyMap.Close):
			h.visible = false
			return h, nil
		case key.Matches(msg, h.keyMap.Up):
			h.viewport.ScrollUp(1)
			return h, nil
		case key.Matches(msg, h.keyMap.Down):
			h.viewport.ScrollDown(1)
			return h, nil
		case key.Matches(msg, h.keyMap.PageUp):
			h.viewport.PageUp()
			return h, nil
		case key.Matches(msg, h.keyMap.PageDown):
			h.viewport.PageDown()
			return h, nil
		}
	}

	var cmd tea.Cmd
	h.viewport, cmd = h.viewport.Update(msg)
	return h, cmd
}

// View renders the popup box, or "" when hidden.
func (h HelpPopup) View() string {
	if !h.visible {
		return ""
	}

	popupWidth, popupHeight := h.boxSize()

	footer := lipgloss.NewStyle().
		Width(popupWidth - 4).
		Align(lipgloss.Center).
		Render(h.footerStyle.Render("Press ? or Esc to close"))

	box := h.borderStyle.
		Width(popupWidth).
		Height(popupHeight).
		Render(lipgloss.JoinVertical(lipgloss.Left, h.viewport.View(), "", footer))

	return insertTitle(box, h.titleStyle.Render(" Help "))
}

// insertTitle writes title into the middle of the box's top border.
func insertTitle(box, title string) string {
	lines := strings.Split(box, "\n")
	pos := (lipgloss.Width(lines[0]) - lipgloss.Width(title)) / 2
	if pos <= 2 {
		return box
	}
	runes := []rune(lines[0])
	for i, r := range []rune(title) {
		if pos+i < len(runes) {
			runes[pos+i] = r
		}
	}
	lines[0] = string(runes)
	return strings.Join(lines, "\n")
}

func (h HelpPopup) boxSize() (int, int) {
	w := h.width * 70 / 100
	w = min(max(w, 40), 64)
	ht := h.height * 80 / 100
	ht = min(max(ht, 15), 32)
	return w, ht
}

// content lists every section's bindings.
func (h HelpPopup) content() string {
	var b strings.Builder
	for _, section := range h.sections {
		b.WriteString("\n")
		b.WriteString(h.categoryStyle.Render(section.Title))
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", 35))
		b.WriteString("\n")
		for _, binding := range section.Bindings {
			help := binding.Help()
			b.WriteString(lipgloss.NewStyle().Width(14).Render(h.keyStyle.Render(help.Key)))
			b.WriteString(h.descStyle.Render(help.Desc))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// SetSize sets the screen size the popup centers in.
func (h *HelpPopup) SetSize(width, height int) {
	h.width = width
	h.height = height
	h.layout()
}

// layout sizes the viewport to the box and loads the content.
func (h *HelpPopup) layout() {
	w, ht := h.boxSize()
	h.viewport.Width = w - 4
	h.viewport.Height = ht - 4
	h.viewport.SetContent(h.content())
}

// Show makes the help popup visible.
func (h *HelpPopup) Show() {
	h.visible = true
	h.layout()
	h.viewport.GotoTop()
}

// Hide makes the help popup invisible.
func (h *HelpPopup) Hide() {
	h.visible = false
}

// Visible returns whether the help popup is visible.
func (h HelpPopup) Visible() bool {
	return h.visible
}

// Toggle toggles the visibility of the help popup.
func (h *HelpPopup) Toggle() {
	if h.visible {
		h.Hide()
	} else {
		h.Show()
	}
}
