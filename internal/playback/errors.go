package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrStateConflict is returned for a transition that makes no sense in the
	// current state, such as seeking with nothing loaded. Callers treat it as
	// a no-op.
	ErrStateConflict = errors.New("transition not valid in current state")

	// ErrSuperseded is returned by Select when another selection was made
	// while the fetch was in flight. The loaded audio was discarded.
	ErrSuperseded = errors.New("track selection superseded")

	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("engine closed")
)

// FetchError reports a failure retrieving a track's bytes.
type FetchError struct {
	Title string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q: %v", e.Title, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports bytes that are not decodable audio.
type DecodeError struct {
	Title string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Title, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
