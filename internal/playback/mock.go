package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// FakeClock is a manually advanced Clock.
type FakeClock struct {
	mu  sync.Mutex
	now float64
}

func (c *FakeClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FakeClock) Set(t float64) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d seconds.
func (c *FakeClock) Advance(d float64) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// FakeBuffer is a Buffer of fixed duration.
type FakeBuffer struct {
	D float64
}

func (b FakeBuffer) Duration() float64 { return b.D }

// FakeSource is a Source that records its calls. Like real audio runtimes,
// Stop fires the registered callback synchronously.
type FakeSource struct {
	mu       sync.Mutex
	Buffer   Buffer
	StartErr error
	offset   float64
	started  int
	stopped  bool
	onEnded  func()
}

func (s *FakeSource) Start(offset float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started > 0 || s.stopped {
		return errors.New("source already used")
	}
	if s.StartErr != nil {
		return s.StartErr
	}
	s.started++
	s.offset = offset
	return nil
}

func (s *FakeSource) SetOnEnded(fn func()) {
	s.mu.Lock()
	s.onEnded = fn
	s.mu.Unlock()
}

func (s *FakeSource) Stop() {
	s.mu.Lock()
	s.stopped = true
	fn := s.onEnded
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// End simulates the emission reaching the end of the buffer.
func (s *FakeSource) End() {
	s.mu.Lock()
	fn := s.onEnded
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Offset returns the offset passed to Start.
func (s *FakeSource) Offset() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Started reports whether Start succeeded.
func (s *FakeSource) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started > 0
}

// Stopped reports whether Stop was called.
func (s *FakeSource) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Live reports whether the source is emitting.
func (s *FakeSource) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started > 0 && !s.stopped
}

// FakeOutput is an Output that records every source it creates.
type FakeOutput struct {
	mu       sync.Mutex
	sources  []*FakeSource
	NewErr   error
	StartErr error
}

func (o *FakeOutput) NewSource(buf Buffer) (Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.NewErr != nil {
		return nil, o.NewErr
	}
	s := &FakeSource{Buffer: buf, StartErr: o.StartErr}
	o.sources = append(o.sources, s)
	return s, nil
}

// Sources returns the created sources in creation order.
func (o *FakeOutput) Sources() []*FakeSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*FakeSource(nil), o.sources...)
}

// Last returns the most recently created source, or nil.
func (o *FakeOutput) Last() *FakeSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sources) == 0 {
		return nil
	}
	return o.sources[len(o.sources)-1]
}

// Live returns the sources currently emitting.
func (o *FakeOutput) Live() []*FakeSource {
	var live []*FakeSource
	for _, s := range o.Sources() {
		if s.Live() {
			live = append(live, s)
		}
	}
	return live
}

// FakeLoader is both a Fetcher and a Decoder backed by an in-memory catalog.
type FakeLoader struct {
	mu      sync.Mutex
	tracks  map[string]float64
	fail    map[string]error
	corrupt map[string]bool
	holds   map[string]chan struct{}
	started map[string]chan struct{}
	fetches []string
}

// NewFakeLoader creates an empty loader.
func NewFakeLoader() *FakeLoader {
	return &FakeLoader{
		tracks:  make(map[string]float64),
		fail:    make(map[string]error),
		corrupt: make(map[string]bool),
		holds:   make(map[string]chan struct{}),
		started: make(map[string]chan struct{}),
	}
}

// Add registers a decodable track of the given duration.
func (l *FakeLoader) Add(title string, duration float64) {
	l.mu.Lock()
	l.tracks[title] = duration
	l.mu.Unlock()
}

// AddCorrupt registers a track whose bytes fetch but do not decode.
func (l *FakeLoader) AddCorrupt(title string) {
	l.mu.Lock()
	l.corrupt[title] = true
	l.mu.Unlock()
}

// FailFetch makes fetching title return err.
func (l *FakeLoader) FailFetch(title string, err error) {
	l.mu.Lock()
	l.fail[title] = err
	l.mu.Unlock()
}

// Hold blocks fetches of title until release is called. started is closed
// once a fetch is waiting.
func (l *FakeLoader) Hold(title string) (started <-chan struct{}, release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	hold := make(chan struct{})
	st := make(chan struct{})
	l.holds[title] = hold
	l.started[title] = st
	var once sync.Once
	return st, func() { once.Do(func() { close(hold) }) }
}

// Fetches returns the titles fetched so far.
func (l *FakeLoader) Fetches() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.fetches...)
}

func (l *FakeLoader) Fetch(ctx context.Context, title string) ([]byte, error) {
	l.mu.Lock()
	l.fetches = append(l.fetches, title)
	hold := l.holds[title]
	st := l.started[title]
	delete(l.holds, title)
	delete(l.started, title)
	err := l.fail[title]
	_, known := l.tracks[title]
	corrupt := l.corrupt[title]
	l.mu.Unlock()

	if hold != nil {
		close(st)
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if corrupt {
		return []byte("garbage"), nil
	}
	if !known {
		return nil, fmt.Errorf("%s: not found", title)
	}
	return []byte("audio:" + title), nil
}

func (l *FakeLoader) Decode(data []byte) (Buffer, error) {
	s := string(data)
	const prefix = "audio:"
	if len(s) < len(prefix) || s[:len(prefix)] != prefix {
		return nil, errors.New("unrecognized format")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.tracks[s[len(prefix):]]
	if !ok {
		return nil, errors.New("unrecognized format")
	}
	return FakeBuffer{D: d}, nil
}
