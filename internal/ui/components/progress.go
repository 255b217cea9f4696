// Package components provides UI components for vidtui.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar wraps the bubbles progress component with time display.
type ProgressBar struct {
	progress progress.Model
	elapsed  time.Duration
	duration time.Duration
	width    int

	TimeStyle   lipgloss.Style
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
	FilledChar  rune
	EmptyChar   rune
}

// NewProgressBar creates a new progress bar with default styling.
func NewProgressBar() ProgressBar {
	p := progress.New(
		progress.WithoutPercentage(),
		progress.WithDefaultGradient(),
	)

	return ProgressBar{
		progress:    p,
		width:       40,
		FilledChar:  '█', // Full block
		EmptyChar:   '░', // Light shade
		TimeStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0")),
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#7571F9")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#606060")),
	}
}

// SetWidth sets the total width available for the bar and both times.
func (p *ProgressBar) SetWidth(width int) {
	p.width = width
	barWidth := width - 19 // "0:00:00 " + " 0:00:00"
	if barWidth < 10 {
		barWidth = 10
	}
	p.progress.Width = barWidth
}

// SetElapsed sets the current elapsed time.
func (p *ProgressBar) SetElapsed(d time.Duration) {
	p.elapsed = d
}

// SetDuration sets the total duration.
func (p *ProgressBar) SetDuration(d time.Duration) {
	p.duration = d
}

// Percent returns elapsed/duration clamped to [0, 1].
func (p ProgressBar) Percent() float64 {
	if p.duration <= 0 {
		return 0
	}
	return clampPercent(float64(p.elapsed) / float64(p.duration))
}

// Update forwards frame messages to the wrapped progress model.
func (p ProgressBar) Update(msg tea.Msg) (ProgressBar, tea.Cmd) {
	m, cmd := p.progress.Update(msg)
	p.progress = m.(progress.Model)
	return p, cmd
}

// View renders "01:23 [=====>----] 03:45".
func (p ProgressBar) View() string {
	return p.ViewAs(p.Percent(), p.elapsed, p.duration)
}

// ViewAs renders the bar at percent (0.0 to 1.0) with the given times.
func (p ProgressBar) ViewAs(percent float64, elapsed, duration time.Duration) string {
	percent = clampPercent(percent)

	elapsedStr := formatDuration(elapsed)
	durationStr := "--:--"
	if duration > 0 {
		durationStr = formatDuration(duration)
	}

	barWidth := p.width - len(elapsedStr) - len(durationStr) - 2
	if barWidth < 5 {
		barWidth = 5
	}
	filledWidth := int(float64(barWidth) * percent)

	filled := p.FilledStyle.Render(strings.Repeat(string(p.FilledChar), filledWidth))
	empty := p.EmptyStyle.Render(strings.Repeat(string(p.EmptyChar), barWidth-filledWidth))

	return fmt.Sprintf("%s %s%s %s",
		p.TimeStyle.Render(elapsedStr),
		filled, empty,
		p.TimeStyle.Render(durationStr),
	)
}

func clampPercent(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

// formatDuration formats as MM:SS, or H:MM:SS from one hour up.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// FormatDuration is formatDuration for callers outside the package.
func FormatDuration(d time.Duration) string {
	return formatDuration(d)
}
