package playback

// StateChange is emitted when the session moves between states.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when a different track is installed.
//
// Emitted by Select (and PlayTitle) once the new buffer is in place. Not
// emitted for a selection of the track that is already current, nor when a
// superseded fetch is discarded.
type TrackChange struct {
	Previous Track
	Current  Track
}

// PositionChange carries the derived display position. Emitted by the
// progress refresh while playing and by every seek.
type PositionChange struct {
	Position float64
	Duration float64
}

// ErrorEvent is emitted when a load or transition fails.
type ErrorEvent struct {
	Operation string // "load", "play", "seek"
	Title     string
	Err       error
}
