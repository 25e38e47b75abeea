//go:build linux

// Package mpris exposes the player on the session bus so media keys and
// desktop widgets can control it.
package mpris

import (
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/playback"
)

// Player is the part of the engine the bus can drive.
type Player interface {
	Play() error
	Pause() error
	Toggle() error
	Seek(target float64) error
	SeekBy(delta float64) error
	Snapshot() playback.Snapshot
}

// Volume is the output level control.
type Volume interface {
	SetVolume(level float64)
	Volume() float64
}

// Adapter serves the MPRIS interfaces for one player.
type Adapter struct {
	server *server.Server
	log    *zap.Logger
}

// New registers the player on the session bus and starts serving in the
// background. vol may be nil.
func New(p Player, vol Volume, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Adapter{
		server: server.NewServer("resonance", &rootAdapter{}, &playerAdapter{player: p, volume: vol}),
		log:    log,
	}
	go func() {
		if err := a.server.Listen(); err != nil {
			a.log.Warn("mpris unavailable", zap.Error(err))
		}
	}()
	return a
}

// Close releases the bus name.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

type rootAdapter struct{}

func (r *rootAdapter) Raise() error                { return nil }
func (r *rootAdapter) Quit() error                 { return nil }
func (r *rootAdapter) CanQuit() (bool, error)      { return false, nil }
func (r *rootAdapter) CanRaise() (bool, error)     { return false, nil }
func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }
func (r *rootAdapter) Identity() (string, error)   { return "Resonance", nil }

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/wav"}, nil
}

type playerAdapter struct {
	player Player
	volume Volume
}

// Conflicts (nothing loaded, already paused) are not bus errors.
func ignoreConflict(err error) error {
	if errors.Is(err, playback.ErrStateConflict) {
		return nil
	}
	return err
}

func (p *playerAdapter) Next() error     { return nil }
func (p *playerAdapter) Previous() error { return nil }

func (p *playerAdapter) Pause() error {
	return ignoreConflict(p.player.Pause())
}

func (p *playerAdapter) PlayPause() error {
	return ignoreConflict(p.player.Toggle())
}

// Stop pauses and rewinds; a session is never unloaded from the bus.
func (p *playerAdapter) Stop() error {
	if err := ignoreConflict(p.player.Pause()); err != nil {
		return err
	}
	return ignoreConflict(p.player.Seek(0))
}

func (p *playerAdapter) Play() error {
	return ignoreConflict(p.player.Play())
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	return ignoreConflict(p.player.SeekBy(seconds(offset)))
}

func (p *playerAdapter) SetPosition(trackID string, position types.Microseconds) error {
	snap := p.player.Snapshot()
	if trackID != formatTrackID(snap.Track.Title) {
		return nil
	}
	return ignoreConflict(p.player.Seek(seconds(position)))
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error { return nil }

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	return playbackStatus(p.player.Snapshot().State), nil
}

func playbackStatus(s playback.State) types.PlaybackStatus {
	switch s {
	case playback.StatePlaying:
		return types.PlaybackStatusPlaying
	case playback.StatePaused, playback.StateLoaded:
		return types.PlaybackStatusPaused
	case playback.StateIdle, playback.StateCompleted:
		return types.PlaybackStatusStopped
	}
	return types.PlaybackStatusStopped
}

func (p *playerAdapter) Rate() (float64, error)  { return 1.0, nil }
func (p *playerAdapter) SetRate(_ float64) error { return nil }

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	t := p.player.Snapshot().Track
	if t.Title == "" {
		return types.Metadata{}, nil
	}
	return types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(t.Title)),
		Length:  microseconds(t.Duration),
		Title:   t.Title,
	}, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	if p.volume == nil {
		return 1.0, nil
	}
	return p.volume.Volume(), nil
}

func (p *playerAdapter) SetVolume(level float64) error {
	if p.volume != nil {
		p.volume.SetVolume(level)
	}
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return int64(microseconds(p.player.Snapshot().Position)), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) { return 1.0, nil }
func (p *playerAdapter) MaximumRate() (float64, error) { return 1.0, nil }
func (p *playerAdapter) CanGoNext() (bool, error)      { return false, nil }
func (p *playerAdapter) CanGoPrevious() (bool, error)  { return false, nil }
func (p *playerAdapter) CanPause() (bool, error)       { return true, nil }
func (p *playerAdapter) CanControl() (bool, error)     { return true, nil }

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.player.Snapshot().State != playback.StateIdle, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return p.player.Snapshot().Track.Duration > 0, nil
}

func seconds(us types.Microseconds) float64 {
	return float64(us) / 1e6
}

func microseconds(s float64) types.Microseconds {
	return types.Microseconds(s * 1e6)
}

func formatTrackID(title string) string {
	h := fnv.New64a()
	h.Write([]byte(title))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
