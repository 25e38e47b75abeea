package audio

import (
	"bytes"
	"errors"
)

// Format identifies an encoded audio container.
type Format string

const (
	FormatMP3  Format = "MP3"
	FormatFLAC Format = "FLAC"
	FormatWAV  Format = "WAV"
)

// ErrUnknownFormat is returned for bytes that match no supported container.
var ErrUnknownFormat = errors.New("unrecognized audio format")

// Extensions lists the file extensions of supported formats.
var Extensions = []string{".mp3", ".flac", ".wav"}

// Sniff detects the format from the leading bytes. Returns the format and
// the offset where the audio stream begins (past any ID3v2 tag).
func Sniff(data []byte) (Format, int, error) {
	start := id3v2Size(data)
	body := data[start:]

	switch {
	case bytes.HasPrefix(body, []byte("fLaC")):
		return FormatFLAC, start, nil
	case len(body) >= 12 && bytes.Equal(body[0:4], []byte("RIFF")) && bytes.Equal(body[8:12], []byte("WAVE")):
		return FormatWAV, start, nil
	case start > 0:
		// Some taggers prepend ID3v2 to FLAC; anything else behind a tag is MP3.
		return FormatMP3, 0, nil
	case len(body) >= 2 && body[0] == 0xFF && body[1]&0xE0 == 0xE0:
		return FormatMP3, 0, nil
	}
	return "", 0, ErrUnknownFormat
}

// id3v2Size returns the byte length of a leading ID3v2 tag, or 0.
func id3v2Size(data []byte) int {
	if len(data) < 10 || string(data[0:3]) != "ID3" {
		return 0
	}
	// Syncsafe integer: 7 bits per byte.
	size := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
	total := 10 + size
	if data[5]&0x10 != 0 {
		total += 10 // footer
	}
	if total > len(data) {
		return len(data)
	}
	return total
}
