package audio

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/playback"
)

// OutputConfig configures the audio device.
type OutputConfig struct {
	SampleRate int           // device rate; buffers at other rates are resampled
	BufferSize time.Duration // speaker buffer latency
	Logger     *zap.Logger
}

// Output drives the speaker. Sources are mixed into one stream whose frame
// count doubles as the hardware clock.
type Output struct {
	rate   beep.SampleRate
	mixer  *beep.Mixer
	clock  *frameClock
	volume *effects.Volume
	log    *zap.Logger

	mu          sync.Mutex
	volumeLevel float64
	muted       bool
}

var speakerOnce sync.Once

// NewOutput initializes the speaker and starts the mixing stream.
func NewOutput(cfg OutputConfig) (*Output, error) {
	if cfg.SampleRate <= 0 {
		return nil, errors.New("audio: sample rate must be positive")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100 * time.Millisecond
	}
	o := newOutput(beep.SampleRate(cfg.SampleRate), cfg.Logger)

	var err error
	initialized := false
	speakerOnce.Do(func() {
		err = speaker.Init(o.rate, o.rate.N(cfg.BufferSize))
		initialized = err == nil
	})
	if err != nil {
		return nil, err
	}
	if !initialized {
		return nil, errors.New("audio: speaker already initialized")
	}
	speaker.Play(o.volume)
	o.log.Info("audio output started",
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Duration("buffer", cfg.BufferSize))
	return o, nil
}

func newOutput(rate beep.SampleRate, log *zap.Logger) *Output {
	if log == nil {
		log = zap.NewNop()
	}
	mixer := &beep.Mixer{}
	clock := &frameClock{s: mixer}
	return &Output{
		rate:        rate,
		mixer:       mixer,
		clock:       clock,
		volume:      &effects.Volume{Streamer: clock, Base: 2},
		log:         log,
		volumeLevel: 1,
	}
}

// Now returns the seconds of audio handed to the device since start.
func (o *Output) Now() float64 {
	return float64(o.clock.frames.Load()) / float64(o.rate)
}

// NewSource creates a single-use emission object for buf, which must have
// been produced by Decode.
func (o *Output) NewSource(buf playback.Buffer) (playback.Source, error) {
	b, ok := buf.(*Buffer)
	if !ok || b == nil {
		return nil, errors.New("audio: buffer not produced by this package")
	}
	return &source{out: o, buf: b}, nil
}

// SetVolume sets the volume level (0.0 to 1.0).
func (o *Output) SetVolume(level float64) {
	level = max(0, min(level, 1))
	o.mu.Lock()
	o.volumeLevel = level
	muted := o.muted
	o.mu.Unlock()

	if !muted {
		speaker.Lock()
		o.volume.Volume = levelToVolume(level)
		speaker.Unlock()
	}
}

// Volume returns the volume level (0.0 to 1.0).
func (o *Output) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volumeLevel
}

// SetMuted silences the output without forgetting the level.
func (o *Output) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()

	speaker.Lock()
	o.volume.Silent = muted
	speaker.Unlock()
}

// Muted reports whether the output is silenced.
func (o *Output) Muted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// Close stops every source and releases the device.
func (o *Output) Close() error {
	speaker.Clear()
	speaker.Close()
	return nil
}

// levelToVolume maps a linear level to beep's base-2 exponent:
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}

// frameClock pads its streamer with silence so it never drains, and counts
// the frames pulled by the device. Called from the speaker goroutine only.
type frameClock struct {
	s      beep.Streamer
	frames atomic.Int64
}

func (c *frameClock) Stream(samples [][2]float64) (int, bool) {
	n, ok := c.s.Stream(samples)
	if !ok {
		n = 0
	}
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	c.frames.Add(int64(len(samples)))
	return len(samples), true
}

func (c *frameClock) Err() error { return nil }
