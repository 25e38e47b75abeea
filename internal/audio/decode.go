package audio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/wav"

	"github.com/resonance-audio/resonance/internal/playback"
)

// Buffer is a fully decoded track held in memory.
type Buffer struct {
	pcm    *beep.Buffer
	format Format
}

// Duration returns the length in seconds.
func (b *Buffer) Duration() float64 {
	return float64(b.pcm.Len()) / float64(b.pcm.Format().SampleRate)
}

// Frames returns the number of PCM frames.
func (b *Buffer) Frames() int { return b.pcm.Len() }

// SampleRate returns the buffer's sample rate.
func (b *Buffer) SampleRate() beep.SampleRate { return b.pcm.Format().SampleRate }

// Format returns the container the buffer was decoded from.
func (b *Buffer) Format() Format { return b.format }

// Info is what a probe learns about encoded audio without keeping the PCM.
type Info struct {
	Format     Format
	SampleRate int
	Channels   int
	Duration   float64
}

// Decode decodes a complete encoded file into memory.
func Decode(data []byte) (*Buffer, error) {
	format, start, err := Sniff(data)
	if err != nil {
		return nil, err
	}
	s, f, err := openStream(format, data[start:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	defer s.Close()

	pcm := beep.NewBuffer(f)
	pcm.Append(s)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	if pcm.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", format, errNoFrames)
	}
	return &Buffer{pcm: pcm, format: format}, nil
}

// Probe validates encoded audio and reads its duration.
func Probe(data []byte) (Info, error) {
	format, start, err := Sniff(data)
	if err != nil {
		return Info{}, err
	}
	s, f, err := openStream(format, data[start:])
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", format, err)
	}
	defer s.Close()

	frames := s.Len()
	if frames <= 0 {
		frames, err = countFrames(s)
		if err != nil {
			return Info{}, fmt.Errorf("%s: %w", format, err)
		}
	}
	if frames == 0 {
		return Info{}, fmt.Errorf("%s: %w", format, errNoFrames)
	}
	return Info{
		Format:     format,
		SampleRate: int(f.SampleRate),
		Channels:   f.NumChannels,
		Duration:   float64(frames) / float64(f.SampleRate),
	}, nil
}

var errNoFrames = errors.New("no audio frames")

func openStream(format Format, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := bytes.NewReader(data)
	switch format {
	case FormatMP3:
		return decodeMP3(r, nil)
	case FormatFLAC:
		return flac.Decode(r)
	case FormatWAV:
		return wav.Decode(r)
	}
	return nil, beep.Format{}, ErrUnknownFormat
}

func countFrames(s beep.Streamer) (int, error) {
	var total int
	buf := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(buf)
		total += n
		if !ok {
			break
		}
	}
	return total, s.Err()
}

// Decoder decodes fetched bytes for the playback engine.
type Decoder struct{}

func (Decoder) Decode(data []byte) (playback.Buffer, error) {
	b, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return b, nil
}
