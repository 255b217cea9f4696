package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/vidtui/internal/player"
	"github.com/dewi-tim/vidtui/internal/ui/components"
)

const (
	// Minimum dimensions
	minWidth  = 60
	minHeight = 15

	// Panel proportions
	libraryWidthPercent = 30
)

// View renders the entire UI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	// Handle small terminal
	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	// Calculate layout dimensions
	libraryWidth := m.width * libraryWidthPercent / 100
	rightWidth := m.width - libraryWidth - 3 // 3 for spacing/borders

	// Build the main layout
	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderLibrary(libraryWidth, m.height-4),
		" ",
		m.renderRightPane(rightWidth, m.height-4),
	)

	// Add footer
	footer := m.renderFooter()

	mainView := lipgloss.JoinVertical(lipgloss.Left, mainContent, footer)

	// Render help overlay if visible
	if m.helpPopup.Visible() {
		return m.renderHelpOverlay(mainView)
	}

	return mainView
}

// renderHelpOverlay renders the help popup on top of the main view.
func (m Model) renderHelpOverlay(mainView string) string {
	// Get the popup content
	popup := m.helpPopup.View()

	// Calculate popup dimensions
	popupLines := strings.Split(popup, "\n")
	popupHeight := len(popupLines)
	popupWidth := 0
	for _, line := range popupLines {
		if w := lipgloss.Width(line); w > popupWidth {
			popupWidth = w
		}
	}

	// Calculate position to center the popup
	mainLines := strings.Split(mainView, "\n")
	mainHeight := len(mainLines)

	startY := (mainHeight - popupHeight) / 2
	if startY < 0 {
		startY = 0
	}
	startX := (m.width - popupWidth) / 2
	if startX < 0 {
		startX = 0
	}

	// Create a new view with the popup overlaid
	result := make([]string, mainHeight)
	for i, line := range mainLines {
		// Ensure line is wide enough
		lineWidth := lipgloss.Width(line)
		if lineWidth < m.width {
			line = line + strings.Repeat(" ", m.width-lineWidth)
		}

		// Check if this line overlaps with the popup
		popupLineIdx := i - startY
		if popupLineIdx >= 0 && popupLineIdx < len(popupLines) {
			popupLine := popupLines[popupLineIdx]
			popupLineWidth := lipgloss.Width(popupLine)

			// Build the overlaid line
			// Left part (before popup)
			var newLine strings.Builder
			if startX > 0 {
				// Get characters before popup
				newLine.WriteString(truncateToWidth(line, startX))
			}
			// Popup content
			newLine.WriteString(popupLine)
			// Right part (after popup)
			rightStart := startX + popupLineWidth
			if rightStart < m.width {
				remaining := substringFromWidth(line, rightStart)
				newLine.WriteString(remaining)
			}
			result[i] = newLine.String()
		} else {
			result[i] = line
		}
	}

	return strings.Join(result, "\n")
}

// truncateToWidth truncates a string to fit within a given visual width.
func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	currentWidth := 0
	var result strings.Builder
	for _, r := range s {
		runeWidth := lipgloss.Width(string(r))
		if currentWidth+runeWidth > width {
			// Pad with spaces if needed
			for currentWidth < width {
				result.WriteRune(' ')
				currentWidth++
			}
			break
		}
		result.WriteRune(r)
		currentWidth += runeWidth
	}
	// Pad if string was too short
	for currentWidth < width {
		result.WriteRune(' ')
		currentWidth++
	}
	return result.String()
}

// substringFromWidth returns the portion of a string starting from a given visual width.
func substringFromWidth(s string, startWidth int) string {
	currentWidth := 0
	for i, r := range s {
		runeWidth := lipgloss.Width(string(r))
		if currentWidth >= startWidth {
			return s[i:]
		}
		currentWidth += runeWidth
	}
	return ""
}

// renderTooSmall renders a message when the terminal is too small.
func (m Model) renderTooSmall() string {
	msg := fmt.Sprintf("Terminal too small\nNeed at least %dx%d\nCurrent: %dx%d",
		minWidth, minHeight, m.width, m.height)
	return lipgloss.NewStyle().
		Foreground(ColorTextMuted).
		Render(msg)
}

// renderLibrary renders the left panel: the library tree, or the file
// browser when no library is configured or it is toggled off.
func (m Model) renderLibrary(width, height int) string {
	focused := m.focus == FocusBrowser

	if m.showLibrary && m.libBrowser != nil {
		return m.styles.RenderPanel("Library", m.libBrowser.View(), focused, width-2, height-2)
	}
	return m.styles.RenderPanel("Files", m.browser.View(), focused, width-2, height-2)
}

// renderRightPane renders the right side containing playlist, video info, and progress.
func (m Model) renderRightPane(width, height int) string {
	playlistHeight := height * 50 / 100
	infoHeight := height * 25 / 100
	progressHeight := height - playlistHeight - infoHeight - 2

	playlist := m.renderPlaylist(width, playlistHeight)
	info := m.renderVideoInfo(width, infoHeight)
	progress := m.renderProgress(width, progressHeight)

	return lipgloss.JoinVertical(lipgloss.Left, playlist, info, progress)
}

// renderPlaylist renders the playlist panel.
func (m Model) renderPlaylist(width, height int) string {
	focused := m.focus == FocusPlaylist
	return m.styles.RenderPanel(m.playlist.Title(), m.playlist.View(), focused, width-2, height-2)
}

// renderVideoInfo renders metadata for the loaded video.
func (m Model) renderVideoInfo(width, height int) string {
	content := strings.Builder{}

	if m.media != nil {
		title := m.media.Title
		if title == "" {
			title = "(Unknown)"
		}
		content.WriteString(fmt.Sprintf("%s %s\n",
			m.styles.TextMuted.Render("Title:"),
			m.styles.TextBold.Render(title)))

		collection := "(none)"
		if e := m.playlist.Current(); e != nil && e.Collection != "" {
			collection = e.Collection
		}
		content.WriteString(fmt.Sprintf("%s %s\n",
			m.styles.TextMuted.Render("Collection:"),
			m.styles.Text.Render(collection)))

		content.WriteString(fmt.Sprintf("%s %s  %s %s\n",
			m.styles.TextMuted.Render("Size:"),
			m.styles.Text.Render(orUnknown(m.media.Resolution())),
			m.styles.TextMuted.Render("Codec:"),
			m.styles.Text.Render(orUnknown(m.media.Codec))))

		content.WriteString(fmt.Sprintf("%s %s",
			m.styles.TextMuted.Render("Container:"),
			m.styles.Text.Render(orUnknown(m.media.Container))))
	} else {
		content.WriteString(m.styles.TextMuted.Render("No video loaded"))
		content.WriteString("\n")
		content.WriteString(m.styles.TextMuted.Render("Select a video from the library"))
	}

	// No border for video info, just content
	style := lipgloss.NewStyle().
		Width(width - 4).
		Height(height - 1).
		Padding(0, 1)

	return style.Render(content.String())
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}

// renderProgress renders the progress bar and playback status.
func (m Model) renderProgress(width, height int) string {
	content := strings.Builder{}

	var statusStyle lipgloss.Style
	var statusText string
	var statusIcon string

	switch m.playback.State {
	case player.StatePlaying:
		statusStyle = m.styles.StatusPlaying
		statusText = "Playing"
		statusIcon = ">"
	case player.StatePaused:
		statusStyle = m.styles.StatusPaused
		statusText = "Paused"
		statusIcon = "||"
	default:
		statusStyle = m.styles.StatusStopped
		statusText = "Stopped"
		statusIcon = "[]"
	}

	// First line: status and rate
	rate := ""
	if m.playback.Rate != 0 && m.playback.Rate != 1 {
		rate = " " + m.styles.Rate.Render(formatRate(m.playback.Rate))
	}
	remaining := ""
	if m.playback.Duration > 0 {
		remaining = m.styles.TextMuted.Render(" | -" + components.FormatDuration(m.playback.Remaining()))
	}

	content.WriteString(fmt.Sprintf("%s %s%s%s\n",
		statusStyle.Render(statusIcon),
		statusStyle.Render(statusText),
		rate,
		remaining))

	// Second line: progress bar
	m.progress.SetWidth(width - 6)
	m.progress.SetElapsed(m.playback.Position)
	m.progress.SetDuration(m.playback.Duration)
	content.WriteString(m.progress.View())

	style := lipgloss.NewStyle().
		Width(width - 4).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted)

	return style.Render(content.String())
}

// formatRate renders a playback rate as "x1.50" or "x-1.00".
func formatRate(rate float64) string {
	return fmt.Sprintf("x%.2f", rate)
}

// footerSep divides the focus hints from the global key help.
const footerSep = "│ "

// renderFooter renders the help/key hints footer.
func (m Model) renderFooter() string {
	var content strings.Builder

	if m.lastError != "" && time.Since(m.errorTime) < errorTimeout {
		content.WriteString(m.styles.StatusError.Render("Error: " + m.lastError))
		content.WriteString("  ")
	}

	hint := func(k, desc string) {
		content.WriteString(m.styles.FooterKey.Render(k))
		content.WriteString(m.styles.FooterDesc.Render(":" + desc + " "))
	}

	switch m.focus {
	case FocusBrowser:
		if m.showLibrary && m.libBrowser != nil {
			hint("Enter", "play")
			hint("a", "queue")
		} else {
			hint("Enter", "add")
			hint(".", "hidden")
		}
		hint("Tab", "playlist")
	case FocusPlaylist:
		hint("Enter", "play")
		hint("d", "remove")
		hint("Tab", "browser")
	}

	content.WriteString(m.styles.FooterSep.Render(footerSep))
	content.WriteString(m.help.ShortHelpView(m.keyMap.ShortHelp()))

	return content.String()
}
