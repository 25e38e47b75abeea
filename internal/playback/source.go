package playback

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Source is a single-use emission object bound to one buffer.
// Once stopped or ended it cannot be started again.
type Source interface {
	// Start begins emission at offset seconds into the buffer.
	Start(offset float64) error
	// SetOnEnded registers the function called when emission ends.
	// A nil fn detaches the callback. Implementations may call it
	// synchronously from Stop.
	SetOnEnded(fn func())
	// Stop halts emission.
	Stop()
}

// Output creates emission objects.
type Output interface {
	NewSource(buf Buffer) (Source, error)
}

// Fetcher retrieves the encoded bytes of a track.
type Fetcher interface {
	Fetch(ctx context.Context, title string) ([]byte, error)
}

// Decoder turns encoded bytes into a decoded buffer.
type Decoder interface {
	Decode(data []byte) (Buffer, error)
}

// Handle is the ownership handle of one live emission object.
type Handle struct {
	id       uint64
	src      Source
	offset   float64
	detached atomic.Bool
}

// ID returns the handle's sequence number. Handles are never reused.
func (h *Handle) ID() uint64 { return h.id }

// Offset returns the buffer offset emission started at.
func (h *Handle) Offset() float64 { return h.offset }

// Detached reports whether the completion callback was detached.
func (h *Handle) Detached() bool { return h.detached.Load() }

// SourceController owns the emission object backing playback and the
// decoded buffer currently loaded. It is not safe for concurrent use; the
// engine serializes every call except LoadBuffer.
type SourceController struct {
	output  Output
	fetcher Fetcher
	decoder Decoder
	onEnded func(*Handle)

	title  string
	buffer Buffer
	nextID uint64
}

// NewSourceController creates a controller. onEnded is called, possibly from
// another goroutine, when a handle's emission ends by itself.
func NewSourceController(out Output, f Fetcher, d Decoder, onEnded func(*Handle)) *SourceController {
	return &SourceController{
		output:  out,
		fetcher: f,
		decoder: d,
		onEnded: onEnded,
	}
}

// Title returns the title of the current buffer, or "" if none.
func (c *SourceController) Title() string { return c.title }

// Buffer returns the current buffer, or nil if none.
func (c *SourceController) Buffer() Buffer { return c.buffer }

// StartFrom creates an emission object for buf and starts it at offset.
func (c *SourceController) StartFrom(offset float64, buf Buffer) (*Handle, error) {
	if buf == nil {
		return nil, ErrStateConflict
	}
	src, err := c.output.NewSource(buf)
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}

	c.nextID++
	h := &Handle{id: c.nextID, src: src, offset: offset}
	src.SetOnEnded(func() {
		if h.detached.Load() {
			return
		}
		if c.onEnded != nil {
			c.onEnded(h)
		}
	})

	if err := src.Start(offset); err != nil {
		c.detach(h)
		return nil, fmt.Errorf("start source at %.3fs: %w", offset, err)
	}
	return h, nil
}

// Stop tears down h: the completion callback is detached before emission is
// halted, so a stop issued here is never reported as a natural end.
func (c *SourceController) Stop(h *Handle) {
	if h == nil || !c.detach(h) {
		return
	}
	h.src.Stop()
}

// Release forgets a handle whose emission already ended by itself.
func (c *SourceController) Release(h *Handle) {
	if h == nil {
		return
	}
	c.detach(h)
}

// detach reports false if h was already detached.
func (c *SourceController) detach(h *Handle) bool {
	if !h.detached.CompareAndSwap(false, true) {
		return false
	}
	h.src.SetOnEnded(nil)
	return true
}

// LoadBuffer fetches and decodes title. It does not touch the current
// buffer; call Replace to install the result.
func (c *SourceController) LoadBuffer(ctx context.Context, title string) (Track, Buffer, error) {
	data, err := c.fetcher.Fetch(ctx, title)
	if err != nil {
		return Track{}, nil, &FetchError{Title: title, Err: err}
	}
	buf, err := c.decoder.Decode(data)
	if err != nil {
		return Track{}, nil, &DecodeError{Title: title, Err: err}
	}
	if buf == nil {
		return Track{}, nil, &DecodeError{Title: title, Err: errors.New("no audio")}
	}
	return Track{
		Title:    title,
		Size:     int64(len(data)),
		Duration: buf.Duration(),
	}, buf, nil
}

// Replace installs buf as the current buffer, wholesale.
func (c *SourceController) Replace(title string, buf Buffer) {
	c.title = title
	c.buffer = buf
}
