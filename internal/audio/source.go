package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

var errSourceUsed = errors.New("audio: source already started")

// source is one emission of a buffer through the output mixer. It can be
// started once; after Stop or a natural end a new source is required.
type source struct {
	out *Output
	buf *Buffer

	mu      sync.Mutex
	ctrl    *beep.Ctrl
	used    bool
	onEnded func()
}

func (s *source) Start(offset float64) error {
	s.mu.Lock()
	if s.used {
		s.mu.Unlock()
		return errSourceUsed
	}
	s.used = true
	s.mu.Unlock()

	rate := s.buf.SampleRate()
	from := max(0, min(rate.N(secondsToDuration(offset)), s.buf.Frames()))

	var st beep.Streamer = s.buf.pcm.Streamer(from, s.buf.Frames())
	if rate != s.out.rate {
		st = beep.Resample(4, rate, s.out.rate, st)
	}
	ctrl := &beep.Ctrl{Streamer: st}

	s.mu.Lock()
	s.ctrl = ctrl
	s.mu.Unlock()

	speaker.Lock()
	s.out.mixer.Add(beep.Seq(ctrl, beep.Callback(s.ended)))
	speaker.Unlock()
	return nil
}

func (s *source) SetOnEnded(fn func()) {
	s.mu.Lock()
	s.onEnded = fn
	s.mu.Unlock()
}

// Stop halts emission. The mixer then drains the sequence and runs the end
// callback, so callers detach it first.
func (s *source) Stop() {
	s.mu.Lock()
	ctrl := s.ctrl
	s.used = true
	s.mu.Unlock()
	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Streamer = nil
	speaker.Unlock()
}

// ended runs on the speaker goroutine with the speaker lock held; the
// callback is dispatched so it may lock the speaker itself.
func (s *source) ended() {
	s.mu.Lock()
	fn := s.onEnded
	s.mu.Unlock()
	if fn != nil {
		go fn()
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
