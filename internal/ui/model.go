package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/dewi-tim/vidtui/internal/library"
	"github.com/dewi-tim/vidtui/internal/log"
	"github.com/dewi-tim/vidtui/internal/player"
	"github.com/dewi-tim/vidtui/internal/ui/components"
)

// Focus represents which panel is currently focused.
type Focus int

const (
	FocusBrowser Focus = iota
	FocusPlaylist
)

// Defaults for the seek and speed keys.
const (
	DefaultSeekStep  = 5 * time.Second
	DefaultSpeedStep = 10
)

// errorTimeout is how long an error stays in the footer.
const errorTimeout = 5 * time.Second

// Opener constructs a player for a file. The graph topology is fixed per
// file, so every new video gets a new player.
type Opener func(path string) (player.Player, error)

// Config configures a Model.
type Config struct {
	StartDir  string           // file browser start directory
	Library   *library.Library // optional; enables the library view
	Open      Opener
	SeekStep  time.Duration
	SpeedStep int // percent
	Logger    *zerolog.Logger
}

// Model is the main Bubbletea model for vidtui.
type Model struct {
	width  int
	height int

	focus       Focus
	showLibrary bool

	browser    components.Browser
	libBrowser *components.LibBrowser
	playlist   components.Playlist
	progress   components.ProgressBar
	helpPopup  components.HelpPopup

	keyMap KeyMap
	help   help.Model
	styles Styles

	open      Opener
	seekStep  time.Duration
	speedStep int
	logger    zerolog.Logger

	player   player.Player
	openSeq  int // bumped per open; stale results are discarded
	updates  <-chan player.PlaybackInfo
	playback player.PlaybackInfo
	media    *player.Media

	lastError string
	errorTime time.Time
	quitting  bool
}

// New creates a Model from cfg.
func New(cfg Config) Model {
	if cfg.SeekStep <= 0 {
		cfg.SeekStep = DefaultSeekStep
	}
	if cfg.SpeedStep <= 0 {
		cfg.SpeedStep = DefaultSpeedStep
	}
	logger := log.WithComponent("ui")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	keyMap := DefaultKeyMap(cfg.SeekStep, cfg.SpeedStep)
	styles := DefaultStyles()
	progress := components.NewProgressBar()
	progress.FilledStyle = styles.ProgressFilled
	progress.EmptyStyle = styles.ProgressEmpty
	progress.TimeStyle = styles.ProgressTime

	m := Model{
		focus:     FocusBrowser,
		browser:   components.NewBrowser(cfg.StartDir),
		playlist:  components.NewPlaylist(),
		progress:  progress,
		helpPopup: components.NewHelpPopup(keyMap.HelpSections()...),
		keyMap:    keyMap,
		help:      help.New(),
		styles:    styles,
		open:      cfg.Open,
		seekStep:  cfg.SeekStep,
		speedStep: cfg.SpeedStep,
		logger:    logger,
		playback:  player.PlaybackInfo{State: player.StateStopped, Rate: 1.0},
	}
	if cfg.Library != nil {
		m.libBrowser = components.NewLibBrowser(cfg.Library)
		m.showLibrary = true
	}
	m.applyFocus()
	return m
}

// Init returns the initial commands: directory listing and library scan.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.browser.Init()}
	if m.libBrowser != nil {
		cmds = append(cmds, m.libBrowser.Init())
	}
	return tea.Batch(cmds...)
}

// Width returns the current window width.
func (m Model) Width() int {
	return m.width
}

// Height returns the current window height.
func (m Model) Height() int {
	return m.height
}

// Focus returns the currently focused panel.
func (m Model) Focus() Focus {
	return m.focus
}

// Playback returns the last playback info received.
func (m Model) Playback() player.PlaybackInfo {
	return m.playback
}

// Playlist returns the playlist component.
func (m Model) Playlist() components.Playlist {
	return m.playlist
}

// Player returns the active player, or nil.
func (m Model) Player() player.Player {
	return m.player
}

// LastError returns the most recent error shown in the footer.
func (m Model) LastError() string {
	return m.lastError
}

// IsPlaying returns true if playback is active.
func (m Model) IsPlaying() bool {
	return m.playback.State == player.StatePlaying
}

// IsPaused returns true if playback is paused.
func (m Model) IsPaused() bool {
	return m.playback.State == player.StatePaused
}

// IsStopped returns true if playback is stopped.
func (m Model) IsStopped() bool {
	return m.playback.State == player.StateStopped
}

// Shutdown releases the active player. The program calls it after the
// event loop exits.
func (m Model) Shutdown() error {
	if m.player == nil {
		return nil
	}
	return m.player.Close()
}

// applyFocus pushes the focus state into the components.
func (m *Model) applyFocus() {
	m.browser.Blur()
	m.playlist.Blur()
	if m.libBrowser != nil {
		m.libBrowser.Blur()
	}

	switch m.focus {
	case FocusBrowser:
		if m.showLibrary && m.libBrowser != nil {
			m.libBrowser.Focus()
		} else {
			m.browser.Focus()
		}
	case FocusPlaylist:
		m.playlist.Focus()
	}
}

func (m *Model) setError(err error) {
	m.lastError = err.Error()
	m.errorTime = time.Now()
	m.logger.Error().Err(err).Msg("playback command failed")
}
