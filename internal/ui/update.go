package ui

import (
	"math"

	"emperror.dev/errors"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dewi-tim/vidtui/internal/player"
	"github.com/dewi-tim/vidtui/internal/ui/components"
)

// minSpeedPercent is the slowest rate reachable with the speed keys.
const minSpeedPercent = 10

// Message types for the TUI.
type (
	// PlaybackMsg carries an update from the active player's subscription.
	PlaybackMsg struct {
		ch   <-chan player.PlaybackInfo
		Info player.PlaybackInfo
	}

	// playerOpenedMsg reports the result of opening a playlist entry.
	playerOpenedMsg struct {
		seq    int
		index  int
		player player.Player
		err    error
	}

	// playerClosedMsg is sent once a subscription channel is closed.
	playerClosedMsg struct {
		ch <-chan player.PlaybackInfo
	}
)

// waitForUpdate blocks on the subscription until the next update.
func waitForUpdate(ch <-chan player.PlaybackInfo) tea.Cmd {
	return func() tea.Msg {
		info, ok := <-ch
		if !ok {
			return playerClosedMsg{ch: ch}
		}
		return PlaybackMsg{ch: ch, Info: info}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if m.helpPopup.Visible() {
			var cmd tea.Cmd
			m.helpPopup, cmd = m.helpPopup.Update(msg)
			return m, cmd
		}
		return m.handleKeyMsg(msg)

	case PlaybackMsg:
		if msg.ch != m.updates {
			return m, nil
		}
		return m.handlePlayback(msg.Info)

	case playerClosedMsg:
		if msg.ch == m.updates {
			m.updates = nil
			m.playback.State = player.StateStopped
		}
		return m, nil

	case playerOpenedMsg:
		return m.handleOpened(msg)

	case components.BrowserReadDirMsg:
		var cmd tea.Cmd
		m.browser, cmd = m.browser.Update(msg)
		return m, cmd

	case components.FileSelectedMsg:
		idx := m.playlist.Add(components.EntryFromPath(msg.Path))
		if m.player == nil || m.IsStopped() {
			cmd := m.playIndex(idx)
			return m, cmd
		}
		return m, nil

	case components.LibVideosSelectedMsg:
		entries := make([]components.Entry, 0, len(msg.Videos))
		for _, v := range msg.Videos {
			entries = append(entries, components.EntryFromVideo(v))
		}
		idx := m.playlist.Add(entries...)
		if len(entries) > 0 && (msg.Play || m.player == nil || m.IsStopped()) {
			cmd := m.playIndex(idx)
			return m, cmd
		}
		return m, nil

	case components.LibraryScannedMsg:
		if msg.Err != nil {
			m.setError(errors.Wrap(msg.Err, "library scan"))
		}
		if m.libBrowser != nil {
			var cmd tea.Cmd
			m.libBrowser, cmd = m.libBrowser.Update(msg)
			return m, cmd
		}
		return m, nil

	case components.PlaylistPlayMsg:
		cmd := m.playIndex(msg.Index)
		return m, cmd
	}

	return m, nil
}

// layout distributes the window among the panels.
func (m *Model) layout() {
	libraryWidth := m.width * libraryWidthPercent / 100
	rightWidth := m.width - libraryWidth - 3
	bodyHeight := m.height - 4

	m.browser.SetSize(libraryWidth-4, bodyHeight-4)
	if m.libBrowser != nil {
		m.libBrowser.SetSize(libraryWidth-4, bodyHeight-4)
	}
	m.playlist.SetSize(rightWidth-4, bodyHeight*50/100-4)
	m.progress.SetWidth(rightWidth - 6)
	m.helpPopup.SetSize(m.width, m.height)
	m.help.Width = m.width
}

// handleKeyMsg processes keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global key bindings (work regardless of focus)
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.quitting = true
		if m.player != nil {
			if err := m.player.Close(); err != nil {
				m.logger.Error().Err(err).Msg("could not close player")
			}
			m.player = nil
			m.updates = nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Help):
		m.helpPopup.Show()
		return m, nil

	case key.Matches(msg, m.keyMap.PlayPause):
		return m.togglePlayPause()

	case key.Matches(msg, m.keyMap.Stop):
		if m.player != nil {
			m.exec(m.player.Stop())
		}
		return m, nil

	case key.Matches(msg, m.keyMap.NextTrack):
		if idx := m.playlist.Next(); idx >= 0 {
			cmd := m.playIndex(idx)
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keyMap.PrevTrack):
		if idx := m.playlist.Prev(); idx >= 0 {
			cmd := m.playIndex(idx)
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keyMap.SeekForward):
		if m.player != nil {
			m.exec(m.player.SeekRelative(m.seekStep))
		}
		return m, nil

	case key.Matches(msg, m.keyMap.SeekBackward):
		if m.player != nil {
			m.exec(m.player.SeekRelative(-m.seekStep))
		}
		return m, nil

	case key.Matches(msg, m.keyMap.SpeedUp):
		return m.stepSpeed(m.speedStep), nil

	case key.Matches(msg, m.keyMap.SpeedDown):
		return m.stepSpeed(-m.speedStep), nil

	case key.Matches(msg, m.keyMap.SpeedReset):
		if m.player != nil {
			m.exec(m.player.ChangeSpeed(100))
		}
		return m, nil

	case key.Matches(msg, m.keyMap.ToggleLibrary):
		if m.libBrowser != nil {
			m.showLibrary = !m.showLibrary
			m.focus = FocusBrowser
			m.applyFocus()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.TabFocus):
		if m.focus == FocusBrowser {
			m.focus = FocusPlaylist
		} else {
			m.focus = FocusBrowser
		}
		m.applyFocus()
		return m, nil
	}

	// Panel-specific key handling
	var cmd tea.Cmd
	switch m.focus {
	case FocusBrowser:
		if m.showLibrary && m.libBrowser != nil {
			m.libBrowser, cmd = m.libBrowser.Update(msg)
		} else {
			m.browser, cmd = m.browser.Update(msg)
		}
	case FocusPlaylist:
		m.playlist, cmd = m.playlist.Update(msg)
	}
	return m, cmd
}

// togglePlayPause toggles the active player, or starts the playlist when
// nothing is loaded.
func (m Model) togglePlayPause() (tea.Model, tea.Cmd) {
	if m.player == nil {
		idx := m.playlist.CurrentIndex()
		if idx < 0 {
			idx = m.playlist.SelectedIndex()
		}
		if m.playlist.Get(idx) == nil {
			return m, nil
		}
		cmd := m.playIndex(idx)
		return m, cmd
	}
	// The subscription is dropped at the end of a video; restarting the
	// same player needs a new one before Toggle notifies.
	var cmd tea.Cmd
	if m.updates == nil {
		m.updates = m.player.Subscribe()
		cmd = waitForUpdate(m.updates)
	}
	m.exec(m.player.Toggle())
	return m, cmd
}

// stepSpeed changes the rate by delta percent, keeping its sign.
func (m Model) stepSpeed(delta int) Model {
	if m.player == nil {
		return m
	}
	rate := m.player.Speed()
	percent := int(math.Round(math.Abs(rate)*100)) + delta
	percent = max(percent, minSpeedPercent)
	if rate < 0 {
		percent = -percent
	}
	m.exec(m.player.ChangeSpeed(percent))
	return m
}

// exec records err, if any, and refreshes the playback snapshot.
func (m *Model) exec(err error) {
	if err != nil {
		m.setError(err)
	}
	if m.player != nil {
		m.playback = m.player.Info()
	}
}

// playIndex opens the playlist entry at index in the background.
func (m *Model) playIndex(index int) tea.Cmd {
	entry := m.playlist.Get(index)
	if entry == nil || m.open == nil {
		return nil
	}
	m.openSeq++
	seq := m.openSeq
	open := m.open
	path := entry.Path
	return func() tea.Msg {
		p, err := open(path)
		return playerOpenedMsg{seq: seq, index: index, player: p, err: err}
	}
}

// handleOpened swaps in a freshly opened player and starts it.
func (m Model) handleOpened(msg playerOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.openSeq {
		// A newer open superseded this one.
		if msg.player != nil {
			if err := msg.player.Close(); err != nil {
				m.logger.Warn().Err(err).Msg("could not close superseded player")
			}
		}
		return m, nil
	}
	if msg.err != nil {
		m.setError(msg.err)
		return m, nil
	}

	if m.player != nil {
		if err := m.player.Close(); err != nil {
			m.logger.Warn().Err(err).Msg("could not close previous player")
		}
	}

	m.player = msg.player
	m.media = msg.player.Media()
	m.playlist.SetCurrent(msg.index)
	m.updates = m.player.Subscribe()
	m.exec(m.player.Play())

	m.logger.Info().
		Str("file", m.media.Path).
		Str("resolution", m.media.Resolution()).
		Msg("playing")
	return m, waitForUpdate(m.updates)
}

// handlePlayback applies a player update and advances the playlist at the
// end of a video.
func (m Model) handlePlayback(info player.PlaybackInfo) (tea.Model, tea.Cmd) {
	m.playback = info
	if info.Err != nil {
		m.setError(info.Err)
	}
	if !info.Finished {
		return m, waitForUpdate(m.updates)
	}

	// Stop listening so the end of stream is handled once.
	m.player.Unsubscribe(m.updates)
	m.updates = nil

	if idx := m.playlist.Next(); idx >= 0 {
		cmd := m.playIndex(idx)
		return m, cmd
	}
	return m, nil
}
