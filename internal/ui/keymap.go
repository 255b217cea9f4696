package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"

	"github.com/dewi-tim/vidtui/internal/ui/components"
)

// KeyMap defines all key bindings for the application.
type KeyMap struct {
	// Playback controls
	PlayPause key.Binding
	NextTrack key.Binding
	PrevTrack key.Binding
	Stop      key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	TabFocus key.Binding

	// Seek controls
	SeekForward  key.Binding
	SeekBackward key.Binding

	// Speed
	SpeedUp    key.Binding
	SpeedDown  key.Binding
	SpeedReset key.Binding

	// Panels
	ToggleLibrary key.Binding

	// Help and Quit
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings. seekStep and speedStep
// only label the help text.
func DefaultKeyMap(seekStep time.Duration, speedStep int) KeyMap {
	seek := seekStep.String()
	return KeyMap{
		// Playback
		PlayPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		NextTrack: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next"),
		),
		PrevTrack: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "prev"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/left", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/right", "right"),
		),
		TabFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "focus"),
		),

		// Seek
		SeekForward: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "+"+seek),
		),
		SeekBackward: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "-"+seek),
		),

		// Speed
		SpeedUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", fmt.Sprintf("speed +%d%%", speedStep)),
		),
		SpeedDown: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", fmt.Sprintf("speed -%d%%", speedStep)),
		),
		SpeedReset: key.NewBinding(
			key.WithKeys("\\"),
			key.WithHelp("\\", "normal speed"),
		),

		// Panels
		ToggleLibrary: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "library/files"),
		),

		// Help and Quit
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns keybindings to show in the short help view.
// Implements the help.KeyMap interface.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.PlayPause,
		k.SpeedUp,
		k.SpeedDown,
		k.Help,
		k.Quit,
	}
}

// FullHelp returns keybindings to show in the full help view.
// Implements the help.KeyMap interface.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Playback column
		{
			k.PlayPause,
			k.NextTrack,
			k.PrevTrack,
			k.Stop,
		},
		// Navigation column
		{
			k.Up,
			k.Down,
			k.TabFocus,
			k.ToggleLibrary,
		},
		// Seek/Speed column
		{
			k.SeekForward,
			k.SeekBackward,
			k.SpeedUp,
			k.SpeedDown,
			k.SpeedReset,
		},
		// System column
		{
			k.Help,
			k.Quit,
		},
	}
}

// HelpSections groups the bindings for the help popup.
func (k KeyMap) HelpSections() []components.HelpSection {
	return []components.HelpSection{
		{Title: "Global", Bindings: []key.Binding{k.Help, k.Quit, k.TabFocus, k.ToggleLibrary}},
		{Title: "Playback", Bindings: []key.Binding{k.PlayPause, k.Stop, k.NextTrack, k.PrevTrack, k.SeekForward, k.SeekBackward}},
		{Title: "Speed", Bindings: []key.Binding{k.SpeedUp, k.SpeedDown, k.SpeedReset}},
		{Title: "Browser", Bindings: browserHelp()},
		{Title: "Playlist", Bindings: playlistHelp()},
	}
}

func browserHelp() []key.Binding {
	b := components.DefaultBrowserKeyMap()
	l := components.DefaultLibBrowserKeyMap()
	return []key.Binding{b.Up, b.Down, b.GoToTop, b.Open, b.Back, b.ToggleHidden, l.AddAll, l.Rescan}
}

func playlistHelp() []key.Binding {
	p := components.DefaultPlaylistKeyMap()
	return []key.Binding{p.Select, p.Remove, p.Clear, p.MoveUp, p.MoveDown, p.Shuffle, p.LoopMode}
}
