package keymap

// Binding associates keys with an action.
type Binding struct {
	Action      Action
	Keys        []string
	Description string
	Context     string // "global", "playback", "library"
}

// Bindings contains all key bindings.
var Bindings = []Binding{
	// Global
	{ActionQuit, []string{"q", "ctrl+c"}, "Quit", "global"},
	{ActionHelp, []string{"?"}, "Toggle help", "global"},
	{ActionRefresh, []string{"ctrl+r"}, "Refresh song list", "global"},

	// Playback
	{ActionPlayPause, []string{" "}, "Play/pause", "playback"},
	{ActionSeekBack, []string{"left", "shift+left"}, "Seek -5s", "playback"},
	{ActionSeekForward, []string{"right", "shift+right"}, "Seek +5s", "playback"},
	{ActionSeekBackLong, []string{"ctrl+left", "<"}, "Seek -30s", "playback"},
	{ActionSeekForwardLong, []string{"ctrl+right", ">"}, "Seek +30s", "playback"},
	{ActionSeekStart, []string{"0"}, "Seek to start", "playback"},
	{ActionVolumeUp, []string{"+", "="}, "Volume up", "playback"},
	{ActionVolumeDown, []string{"-"}, "Volume down", "playback"},
	{ActionToggleMute, []string{"m"}, "Mute", "playback"},

	// Library list
	{ActionMoveUp, []string{"k", "up"}, "Move up", "library"},
	{ActionMoveDown, []string{"j", "down"}, "Move down", "library"},
	{ActionJumpStart, []string{"g", "home"}, "First track", "library"},
	{ActionJumpEnd, []string{"G", "end"}, "Last track", "library"},
	{ActionPageUp, []string{"pgup"}, "Page up", "library"},
	{ActionPageDown, []string{"pgdown"}, "Page down", "library"},
	{ActionSelect, []string{"enter"}, "Load and play", "library"},
	{ActionLoad, []string{"l"}, "Load", "library"},
	{ActionFilter, []string{"/"}, "Filter titles", "library"},
}

// ByContext returns key bindings filtered by context.
func ByContext(context string) []Binding {
	var result []Binding
	for _, kb := range Bindings {
		if kb.Context == context {
			result = append(result, kb)
		}
	}
	return result
}

// Contexts lists the binding contexts in help order.
var Contexts = []string{"playback", "library", "global"}
