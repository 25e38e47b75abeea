//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpTrackLoad,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpTrackLoad,
			err:      errors.New("not found"),
			expected: "Failed to load track: not found",
		},
		{
			name:     "library scan operation",
			op:       OpLibraryScan,
			err:      errors.New("permission denied"),
			expected: "Failed to scan library: permission denied",
		},
		{
			name:     "playback operation",
			op:       OpPlaybackStart,
			err:      errors.New("no audio device"),
			expected: "Failed to start playback: no audio device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.op, tt.err)
			if result != tt.expected {
				t.Errorf("Format(%q, %v) = %q, want %q", tt.op, tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpUpload,
			context:  "song.mp3",
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with context",
			op:       OpUpload,
			context:  "song.mp3",
			err:      errors.New("file too large"),
			expected: "Failed to upload track 'song.mp3': file too large",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpUpload,
			context:  "",
			err:      errors.New("file too large"),
			expected: "Failed to upload track: file too large",
		},
		{
			name:     "connect with url context",
			op:       OpConnect,
			context:  "ws://localhost:8080/ws",
			err:      errors.New("connection refused"),
			expected: "Failed to connect to server 'ws://localhost:8080/ws': connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWith(tt.op, tt.context, tt.err)
			if result != tt.expected {
				t.Errorf("FormatWith(%q, %q, %v) = %q, want %q", tt.op, tt.context, tt.err, result, tt.expected)
			}
		})
	}
}

func TestForOperation(t *testing.T) {
	tests := []struct {
		name string
		want Op
	}{
		{"load", OpTrackLoad},
		{"play", OpPlaybackStart},
		{"pause", OpPlaybackPause},
		{"seek", OpPlaybackSeek},
		{"rewind", Op("rewind")},
	}
	for _, tt := range tests {
		if got := ForOperation(tt.name); got != tt.want {
			t.Errorf("ForOperation(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestOpConstants(t *testing.T) {
	ops := []Op{
		OpTrackLoad, OpPlaybackStart, OpPlaybackPause, OpPlaybackSeek,
		OpLibraryScan, OpLibraryWatch, OpLibraryLoad,
		OpUpload, OpAnnounce, OpDecode,
		OpConnect, OpServeStart, OpAudioOpen,
		OpInitialize,
	}

	testErr := errors.New("test error")

	for _, op := range ops {
		t.Run(string(op), func(t *testing.T) {
			if op == "" {
				t.Error("Op constant should not be empty")
			}
			expected := "Failed to " + string(op) + ": test error"
			if result := Format(op, testErr); result != expected {
				t.Errorf("Format = %q, want %q", result, expected)
			}
		})
	}
}
