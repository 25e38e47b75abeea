package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/protocol"
)

// Reporter informs the server of client-side events. Report must not block.
type Reporter interface {
	Report(action protocol.Action, info protocol.AudioInformation)
}

// Options configures an Engine. Clock, Output, Fetcher and Decoder are
// required.
type Options struct {
	Clock    Clock
	Output   Output
	Fetcher  Fetcher
	Decoder  Decoder
	Reporter Reporter
	// ProgressInterval is the period of the display refresh while playing.
	// Zero disables the refresh.
	ProgressInterval time.Duration
	Logger           *zap.Logger
}

// Snapshot is a consistent read of the engine state.
type Snapshot struct {
	Track    Track
	State    State
	Playing  bool
	Position float64 // live position
	Display  float64 // last value published by the progress refresh
}

// Engine drives one playback session. Every transition holds mu, so
// transitions never interleave; only fetching and decoding run outside it.
type Engine struct {
	mu       sync.Mutex
	clock    Clock
	sources  *SourceController
	reporter Reporter
	log      *zap.Logger

	session    Session
	desired    string
	generation uint64
	display    float64
	closed     bool

	progressInterval time.Duration
	progressToken    uint64
	progressStop     chan struct{}

	subsMu sync.RWMutex
	subs   []*Subscription
}

// New creates an engine with an idle session.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		clock:            opts.Clock,
		reporter:         opts.Reporter,
		log:              log,
		progressInterval: opts.ProgressInterval,
	}
	e.sources = NewSourceController(opts.Output, opts.Fetcher, opts.Decoder, e.handleEnded)
	return e
}

// Select makes title the current track, fetching and decoding it unless it
// already is. Any active emission is torn down before the new buffer is
// installed. On failure the session is left exactly as it was.
//
// A selection made while an earlier fetch is in flight supersedes it: the
// earlier call returns ErrSuperseded and its result is dropped.
func (e *Engine) Select(ctx context.Context, title string) error {
	if title == "" {
		return ErrStateConflict
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.generation++
	gen := e.generation
	e.desired = title
	if e.session.state.HasTrack() && e.sources.Title() == title {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	track, buf, err := e.sources.LoadBuffer(ctx, title)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if gen != e.generation {
		e.log.Debug("discarding superseded load",
			zap.String("title", title),
			zap.String("desired", e.desired))
		return ErrSuperseded
	}
	if err != nil {
		e.log.Warn("load failed", zap.String("title", title), zap.Error(err))
		e.publishError(ErrorEvent{Operation: "load", Title: title, Err: err})
		return err
	}

	e.switchTrackLocked(track, buf)
	return nil
}

// PlayTitle selects title and starts playing it.
func (e *Engine) PlayTitle(ctx context.Context, title string) error {
	if err := e.Select(ctx, title); err != nil {
		return err
	}
	return e.Play()
}

// Play resumes from the logical position. No-op while playing.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.playLocked()
}

// Pause folds the elapsed interval into the logical position and stops
// emission. No-op while not playing.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.pauseLocked()
	return nil
}

// Toggle pauses while playing and plays otherwise.
func (e *Engine) Toggle() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.session.playing {
		e.pauseLocked()
		return nil
	}
	return e.playLocked()
}

// Seek moves to target seconds, clamped to the track. While playing the
// emission is restarted from the new position; while paused only the
// logical position changes.
func (e *Engine) Seek(target float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.seekLocked(target)
}

// SeekBy moves relative to the live position.
func (e *Engine) SeekBy(delta float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.seekLocked(e.session.Elapsed(e.clock.Now()) + delta)
}

// Position returns the live track position in seconds.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Elapsed(e.clock.Now())
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Track:    e.session.track,
		State:    e.session.state,
		Playing:  e.session.playing,
		Position: e.session.Elapsed(e.clock.Now()),
		Display:  e.display,
	}
}

// Desired returns the title of the most recent selection, which may still
// be loading.
func (e *Engine) Desired() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.desired
}

// Subscribe creates a new event subscription.
func (e *Engine) Subscribe() *Subscription {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	sub := newSubscription()
	e.subs = append(e.subs, sub)
	return sub
}

// Close stops playback and closes every subscription.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.generation++
	e.teardownLocked()
	e.mu.Unlock()

	e.subsMu.Lock()
	for _, sub := range e.subs {
		sub.close()
	}
	e.subs = nil
	e.subsMu.Unlock()
	return nil
}

func (e *Engine) playLocked() error {
	prev := e.session
	changed, err := OnPlay(&e.session, e.clock.Now())
	if err != nil || !changed {
		return err
	}

	h, err := e.sources.StartFrom(e.session.position, e.sources.Buffer())
	if err != nil {
		e.session = prev
		e.log.Error("start emission failed", zap.String("title", prev.track.Title), zap.Error(err))
		e.publishError(ErrorEvent{Operation: "play", Title: prev.track.Title, Err: err})
		return err
	}
	e.session.source = h
	e.startProgressLocked()

	e.publishState(prev.state, e.session.state)
	e.report(protocol.ActionPlay)
	return nil
}

func (e *Engine) pauseLocked() {
	prev := e.session.state
	if !OnPause(&e.session, e.clock.Now()) {
		return
	}
	e.stopProgressLocked()
	e.sources.Stop(e.session.source)
	e.session.source = nil
	e.display = e.session.position

	e.publishState(prev, e.session.state)
	e.report(protocol.ActionPause)
}

func (e *Engine) seekLocked(target float64) error {
	restart, err := OnSeek(&e.session, e.clock.Now(), target)
	if err != nil {
		return err
	}
	e.display = e.session.position

	if restart {
		// The old emission must be fully torn down before the new one starts.
		e.sources.Stop(e.session.source)
		e.session.source = nil

		h, err := e.sources.StartFrom(e.session.position, e.sources.Buffer())
		if err != nil {
			OnPause(&e.session, e.clock.Now())
			e.stopProgressLocked()
			e.log.Error("restart emission failed", zap.Float64("offset", e.session.position), zap.Error(err))
			e.publishState(StatePlaying, e.session.state)
			e.publishError(ErrorEvent{Operation: "seek", Title: e.session.track.Title, Err: err})
			return err
		}
		e.session.source = h
	}

	e.publishPosition(e.session.position)
	e.report(protocol.ActionSeek)
	return nil
}

func (e *Engine) switchTrackLocked(track Track, buf Buffer) {
	prevTrack := e.session.track
	prevState := e.session.state

	e.teardownLocked()
	e.sources.Replace(track.Title, buf)
	e.session.reset(track)
	e.display = 0

	e.log.Info("track loaded",
		zap.String("title", track.Title),
		zap.Int64("size", track.Size),
		zap.Float64("duration", track.Duration))
	e.publishTrack(TrackChange{Previous: prevTrack, Current: track})
	e.publishState(prevState, e.session.state)
}

// teardownLocked stops the refresh and any emission without touching the
// logical position.
func (e *Engine) teardownLocked() {
	e.stopProgressLocked()
	if e.session.source != nil {
		e.sources.Stop(e.session.source)
		e.session.source = nil
	}
	e.session.playing = false
	e.session.anchor = Anchor{}
}

// handleEnded runs when an emission ends by itself. It may be called from
// any goroutine, after the handle was already replaced.
func (e *Engine) handleEnded(h *Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.session.source != h {
		return
	}
	e.sources.Release(h)
	e.stopProgressLocked()
	prev := e.session.state
	OnTrackComplete(&e.session)
	e.session.source = nil
	e.display = 0

	e.log.Info("track completed", zap.String("title", e.session.track.Title))
	e.publishState(prev, e.session.state)
	e.publishPosition(0)
}

func (e *Engine) report(action protocol.Action) {
	if e.reporter == nil {
		return
	}
	t := e.session.track
	e.reporter.Report(action, protocol.AudioInformation{
		Title:    t.Title,
		Size:     t.Size,
		Duration: t.Duration,
	})
}

func (e *Engine) publishState(prev, cur State) {
	if prev == cur {
		return
	}
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		sub.sendState(StateChange{Previous: prev, Current: cur})
	}
}

func (e *Engine) publishTrack(tc TrackChange) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		sub.sendTrack(tc)
	}
}

func (e *Engine) publishPosition(pos float64) {
	pc := PositionChange{Position: pos, Duration: e.session.track.Duration}
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		sub.sendPosition(pc)
	}
}

func (e *Engine) publishError(ev ErrorEvent) {
	if errors.Is(ev.Err, ErrStateConflict) {
		return
	}
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		sub.sendError(ev)
	}
}
