// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Playback operations
	OpTrackLoad     Op = "load track"
	OpPlaybackStart Op = "start playback"
	OpPlaybackPause Op = "pause playback"
	OpPlaybackSeek  Op = "seek"

	// Library operations
	OpLibraryScan  Op = "scan library"
	OpLibraryWatch Op = "watch library"
	OpLibraryLoad  Op = "load song list"

	// Transfer operations
	OpUpload   Op = "upload track"
	OpAnnounce Op = "announce track"
	OpDecode   Op = "decode audio file"

	// Connection operations
	OpConnect    Op = "connect to server"
	OpServeStart Op = "start server"
	OpAudioOpen  Op = "open audio device"

	// Initialization
	OpInitialize Op = "initialize application"
)

// ForOperation maps a playback error event operation name to an Op.
// Unknown names fall back to the name itself.
func ForOperation(name string) Op {
	switch name {
	case "load":
		return OpTrackLoad
	case "play":
		return OpPlaybackStart
	case "pause":
		return OpPlaybackPause
	case "seek":
		return OpPlaybackSeek
	}
	return Op(name)
}

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
