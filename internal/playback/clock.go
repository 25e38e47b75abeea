package playback

// Clock is a monotonic hardware clock in seconds. It only needs to be
// consistent with itself; its zero point has no meaning.
type Clock interface {
	Now() float64
}

// ComputeElapsed returns the track position for a clock reading.
// While the anchor is set the playing interval since the anchor is added to
// the paused offset, otherwise the paused offset is returned as is.
func ComputeElapsed(now float64, anchor Anchor, pausedOffset float64) float64 {
	if !anchor.Set {
		return pausedOffset
	}
	return pausedOffset + (now - anchor.At)
}

// OnPlay starts a playing interval at now. The logical position is the
// resume point and is left untouched. Reports whether the session changed.
func OnPlay(s *Session, now float64) (bool, error) {
	if !s.state.HasTrack() {
		return false, ErrStateConflict
	}
	if s.playing {
		return false, nil
	}
	s.anchor = Anchor{At: now, Set: true}
	s.playing = true
	s.state = StatePlaying
	return true, nil
}

// OnPause folds the current playing interval into the logical position.
// Reports whether the session changed.
func OnPause(s *Session, now float64) bool {
	if !s.playing {
		return false
	}
	s.position = s.Elapsed(now)
	s.anchor = Anchor{}
	s.playing = false
	s.state = StatePaused
	return true
}

// OnSeek moves the logical position to target, clamped to the track.
// restart is true when the session was playing and emission must be restarted
// from the new position. Seeking to the very end never completes the track.
func OnSeek(s *Session, now, target float64) (restart bool, err error) {
	if !s.state.HasTrack() {
		return false, ErrStateConflict
	}
	s.position = s.clamp(target)
	if !s.playing {
		if s.state == StateCompleted {
			s.state = StatePaused
		}
		return false, nil
	}
	s.anchor = Anchor{At: now, Set: true}
	return true, nil
}

// OnTrackComplete resets the session after the emission ended by itself.
func OnTrackComplete(s *Session) {
	s.position = 0
	s.anchor = Anchor{}
	s.playing = false
	s.state = StateCompleted
}
