// Package protocol defines the JSON messages exchanged between the server
// and its clients over HTTP and WebSocket.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Action is the kind of a client status message.
type Action string

const (
	ActionPlay     Action = "PLAY"
	ActionPause    Action = "PAUSE"
	ActionSeek     Action = "SEEK"
	ActionNewTrack Action = "NEW_TRACK"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionPlay, ActionPause, ActionSeek, ActionNewTrack:
		return true
	}
	return false
}

// AudioInformation describes a decoded track.
type AudioInformation struct {
	Title    string  `json:"title"`
	Size     int64   `json:"size"`
	Duration float64 `json:"duration"`
}

// Message is a client status report or announcement.
type Message struct {
	Action  Action           `json:"action"`
	Payload AudioInformation `json:"payload"`
}

// SongListMessage carries the full library, in server order.
type SongListMessage struct {
	Songs []string `json:"songs"`
}

// Error reports a payload that does not match the expected message shape.
type Error struct {
	Kind   string // message kind being decoded
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// DecodeSongList parses a song list payload. The songs field must be present,
// not null, and contain only strings.
func DecodeSongList(data []byte) (SongListMessage, error) {
	var raw struct {
		Songs *[]string `json:"songs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return SongListMessage{}, &Error{Kind: "song list", Reason: "invalid json", Err: err}
	}
	if raw.Songs == nil {
		return SongListMessage{}, &Error{Kind: "song list", Reason: "missing songs"}
	}
	return SongListMessage{Songs: *raw.Songs}, nil
}

// DecodeMessage parses a status message. The action must be known and the
// payload must name a track.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&m); err != nil {
		return Message{}, &Error{Kind: "message", Reason: "invalid json", Err: err}
	}
	if !m.Action.Valid() {
		return Message{}, &Error{Kind: "message", Reason: fmt.Sprintf("unknown action %q", m.Action)}
	}
	if m.Payload.Title == "" {
		return Message{}, &Error{Kind: "message", Reason: "missing title"}
	}
	if m.Payload.Size < 0 || m.Payload.Duration < 0 {
		return Message{}, &Error{Kind: "message", Reason: "negative size or duration"}
	}
	return m, nil
}

// Encode marshals v, which must be one of the message types.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}
