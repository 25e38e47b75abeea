//go:build !linux

package mpris

import (
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

// Adapter is a no-op on non-Linux platforms.
type Adapter struct{}

// New returns a no-op adapter on non-Linux platforms.
func New(Player, Volume, *zap.Logger) *Adapter {
	return &Adapter{}
}

// Close is a no-op on non-Linux platforms.
func (a *Adapter) Close() error {
	return nil
}
