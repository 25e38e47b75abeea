package playback

import "math"

// Track describes a decoded track. Immutable once decoded.
type Track struct {
	Title    string
	Size     int64   // bytes of the encoded file
	Duration float64 // seconds
}

// Buffer is a decoded PCM buffer. The engine only needs its duration.
type Buffer interface {
	Duration() float64
}

// Anchor is a hardware clock reading. Set is false while paused.
type Anchor struct {
	At  float64
	Set bool
}

// Session is the state of one track's playback.
//
// Fields are only written by the clock manager functions in clock.go and by
// the engine when it swaps emission handles.
type Session struct {
	track    Track
	position float64
	anchor   Anchor
	playing  bool
	source   *Handle
	state    State
}

// Track returns the track bound to the session.
func (s *Session) Track() Track { return s.track }

// LogicalPosition returns the resume point in seconds. While playing it is the
// position at the last anchor, not the live position.
func (s *Session) LogicalPosition() float64 { return s.position }

// Anchor returns the clock anchor of the current playing interval.
func (s *Session) Anchor() Anchor { return s.anchor }

// IsPlaying reports whether emission is active.
func (s *Session) IsPlaying() bool { return s.playing }

// Source returns the active emission handle, or nil.
func (s *Session) Source() *Handle { return s.source }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Elapsed returns the live position at hardware time now.
func (s *Session) Elapsed(now float64) float64 {
	return s.clamp(ComputeElapsed(now, s.anchor, s.position))
}

func (s *Session) clamp(pos float64) float64 {
	if math.IsNaN(pos) || pos < 0 {
		return 0
	}
	if pos > s.track.Duration {
		return s.track.Duration
	}
	return pos
}

// reset binds the session to a freshly loaded track.
func (s *Session) reset(track Track) {
	*s = Session{track: track, state: StateLoaded}
}
