package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/resonance-audio/resonance/internal/playback"
)

// Messages produced by the commands below.
type (
	stateMsg    playback.StateChange
	trackMsg    playback.TrackChange
	positionMsg playback.PositionChange
	errorMsg    playback.ErrorEvent
	closedMsg   struct{}

	songsMsg struct {
		titles []string
		ok     bool
	}

	loadedMsg struct {
		title string
		err   error
	}

	refreshedMsg struct{ err error }
)

// waitForChannel creates a command that waits for a value from a channel and converts it to a message.
// onResult receives the value and a boolean indicating if the channel is still open (false means channel closed).
func waitForChannel[T any](ch <-chan T, onResult func(T, bool) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		result, ok := <-ch
		return onResult(result, ok)
	}
}

// watchEngine waits for the next engine event.
func watchEngine(sub *playback.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case e := <-sub.StateChanged:
			return stateMsg(e)
		case e := <-sub.TrackChanged:
			return trackMsg(e)
		case e := <-sub.PositionChanged:
			return positionMsg(e)
		case e := <-sub.Error:
			return errorMsg(e)
		case <-sub.Done:
			return closedMsg{}
		}
	}
}

// watchLibrary waits for the next song list.
func watchLibrary(ch <-chan []string) tea.Cmd {
	return waitForChannel(ch, func(titles []string, ok bool) tea.Msg {
		return songsMsg{titles: titles, ok: ok}
	})
}

// loadCmd selects title off the update loop, since selection fetches and
// decodes.
func loadCmd(ctx context.Context, p Player, title string, play bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if play {
			err = p.PlayTitle(ctx, title)
		} else {
			err = p.Select(ctx, title)
		}
		return loadedMsg{title: title, err: err}
	}
}

func refreshCmd(ctx context.Context, refresh func(context.Context) error) tea.Cmd {
	if refresh == nil {
		return nil
	}
	return func() tea.Msg {
		return refreshedMsg{err: refresh(ctx)}
	}
}
