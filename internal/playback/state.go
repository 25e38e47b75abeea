// internal/playback/state.go
package playback

// State represents the lifecycle of a playback session.
//
//	┌──────┐  load   ┌────────┐  play   ┌─────────┐  pause  ┌────────┐
//	│ Idle │ ───────▶│ Loaded │ ───────▶│ Playing │ ───────▶│ Paused │
//	└──────┘         └────────┘         └─────────┘◀─────── └────────┘
//	                      ▲                  │         play
//	                      │ play again       │ natural end
//	                      │ (from 0)         ▼
//	                      │            ┌───────────┐
//	                      └────────────│ Completed │
//	                                   └───────────┘
//
// Valid transitions:
//   - Idle      → Loaded    (successful load)
//   - Loaded    → Playing   (play)
//   - Paused    → Playing   (play)
//   - Playing   → Paused    (pause)
//   - Playing   → Completed (natural end of emission)
//   - Completed → Playing   (play, restarts from 0)
//   - any       → Loaded    (different track selected)
//
// No-op transitions (handled gracefully):
//   - Playing → Playing (play while playing)
//   - Paused  → Paused  (pause while paused)
//   - Idle    → *       (play/seek with nothing loaded reports ErrStateConflict)
type State int

const (
	StateIdle State = iota
	StateLoaded
	StatePlaying
	StatePaused
	StateCompleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoaded:
		return "Loaded"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// HasTrack returns true if a decoded buffer backs the session.
func (s State) HasTrack() bool {
	return s != StateIdle
}

// CanPlay returns true if play would start emission.
func (s State) CanPlay() bool {
	return s == StateLoaded || s == StatePaused || s == StateCompleted
}

// CanPause returns true if the state allows pausing.
func (s State) CanPause() bool {
	return s == StatePlaying
}
