package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/errmsg"
	"github.com/resonance-audio/resonance/internal/keymap"
	"github.com/resonance-audio/resonance/internal/playback"
)

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if m.filterOn {
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)

	case stateMsg, trackMsg:
		if _, ok := msg.(trackMsg); ok {
			m.errLine = ""
		}
		m.snap = m.player.Snapshot()
		return m, watchEngine(m.sub)

	case positionMsg:
		m.snap = m.player.Snapshot()
		m.snap.Position = msg.Position
		return m, watchEngine(m.sub)

	case errorMsg:
		m.errLine = errmsg.FormatWith(errmsg.ForOperation(msg.Operation), msg.Title, msg.Err)
		if m.loading == msg.Title {
			m.loading = ""
		}
		return m, watchEngine(m.sub)

	case closedMsg:
		return m, tea.Quit

	case songsMsg:
		if !msg.ok {
			return m, nil
		}
		m.setTitles(msg.titles)
		return m, watchLibrary(m.library.Updates())

	case loadedMsg:
		if m.loading == msg.title {
			m.loading = ""
		}
		if msg.err != nil && !errors.Is(msg.err, playback.ErrSuperseded) {
			m.log.Debug("load finished", zap.String("title", msg.title), zap.Error(msg.err))
		}
		m.snap = m.player.Snapshot()
		return m, nil

	case refreshedMsg:
		if msg.err != nil {
			m.errLine = errmsg.Format(errmsg.OpLibraryLoad, msg.err)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterOn = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.setTitles(m.titles)
		return m, nil
	case tea.KeyEnter:
		m.filterOn = false
		m.filter.Blur()
		m.clampCursor()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor, m.offset = 0, 0
	m.applyFilter()
	m.clampCursor()
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.keys.Resolve(msg.String())
	switch action {
	case keymap.ActionQuit:
		return m, tea.Quit
	case keymap.ActionHelp:
		m.showHelp = !m.showHelp
	case keymap.ActionRefresh:
		return m, refreshCmd(m.ctx, m.refresh)

	case keymap.ActionPlayPause:
		m.transport(m.player.Toggle())
	case keymap.ActionSeekForward:
		m.transport(m.player.SeekBy(m.seekStep))
	case keymap.ActionSeekBack:
		m.transport(m.player.SeekBy(-m.seekStep))
	case keymap.ActionSeekForwardLong:
		m.transport(m.player.SeekBy(m.seekStep * longSeekFactor))
	case keymap.ActionSeekBackLong:
		m.transport(m.player.SeekBy(-m.seekStep * longSeekFactor))
	case keymap.ActionSeekStart:
		m.transport(m.player.Seek(0))

	case keymap.ActionVolumeUp:
		if m.volume != nil {
			m.volume.SetVolume(m.volume.Volume() + volumeStep)
		}
	case keymap.ActionVolumeDown:
		if m.volume != nil {
			m.volume.SetVolume(m.volume.Volume() - volumeStep)
		}
	case keymap.ActionToggleMute:
		if m.volume != nil {
			m.volume.SetMuted(!m.volume.Muted())
		}

	case keymap.ActionMoveUp:
		m.cursor--
		m.clampCursor()
	case keymap.ActionMoveDown:
		m.cursor++
		m.clampCursor()
	case keymap.ActionPageUp:
		m.cursor -= m.listHeight()
		m.clampCursor()
	case keymap.ActionPageDown:
		m.cursor += m.listHeight()
		m.clampCursor()
	case keymap.ActionJumpStart:
		m.cursor = 0
		m.clampCursor()
	case keymap.ActionJumpEnd:
		m.cursor = len(m.visible) - 1
		m.clampCursor()
	case keymap.ActionFilter:
		m.filterOn = true
		m.clampCursor()
		return m, m.filter.Focus()

	case keymap.ActionSelect, keymap.ActionLoad:
		title := m.selected()
		if title == "" {
			return m, nil
		}
		m.loading = title
		m.errLine = ""
		return m, loadCmd(m.ctx, m.player, title, action == keymap.ActionSelect)
	}
	return m, nil
}

// transport applies the result of a play, pause or seek. Failures reach
// the error line through the engine's error events; conflicts such as
// playing with nothing loaded are silent.
func (m *Model) transport(err error) {
	if err != nil && !errors.Is(err, playback.ErrStateConflict) {
		m.log.Debug("transport", zap.Error(err))
	}
	m.snap = m.player.Snapshot()
}
