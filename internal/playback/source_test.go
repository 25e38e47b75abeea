package playback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(out *FakeOutput, l *FakeLoader) (*SourceController, *[]*Handle) {
	var ended []*Handle
	c := NewSourceController(out, l, l, func(h *Handle) { ended = append(ended, h) })
	return c, &ended
}

func TestSourceController_StopDoesNotReportEnd(t *testing.T) {
	out := &FakeOutput{}
	c, ended := newTestController(out, NewFakeLoader())

	h, err := c.StartFrom(2, FakeBuffer{D: 10})
	require.NoError(t, err)
	assert.Equal(t, 2.0, out.Last().Offset())

	c.Stop(h)

	assert.True(t, out.Last().Stopped())
	assert.True(t, h.Detached())
	assert.Empty(t, *ended, "stop must not be reported as a natural end")
}

func TestSourceController_NaturalEndReported(t *testing.T) {
	out := &FakeOutput{}
	c, ended := newTestController(out, NewFakeLoader())

	h, err := c.StartFrom(0, FakeBuffer{D: 10})
	require.NoError(t, err)

	out.Last().End()

	require.Len(t, *ended, 1)
	assert.Same(t, h, (*ended)[0])
}

func TestSourceController_StopTwiceIsSafe(t *testing.T) {
	out := &FakeOutput{}
	c, _ := newTestController(out, NewFakeLoader())

	h, err := c.StartFrom(0, FakeBuffer{D: 10})
	require.NoError(t, err)

	c.Stop(h)
	c.Stop(h)
	c.Stop(nil)
}

func TestSourceController_HandlesAreUnique(t *testing.T) {
	c, _ := newTestController(&FakeOutput{}, NewFakeLoader())

	a, err := c.StartFrom(0, FakeBuffer{D: 10})
	require.NoError(t, err)
	c.Stop(a)
	b, err := c.StartFrom(0, FakeBuffer{D: 10})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSourceController_StartFailure(t *testing.T) {
	out := &FakeOutput{StartErr: errors.New("device busy")}
	c, ended := newTestController(out, NewFakeLoader())

	h, err := c.StartFrom(0, FakeBuffer{D: 10})
	require.Error(t, err)
	assert.Nil(t, h)

	out.Last().End()
	assert.Empty(t, *ended, "failed source must be detached")
}

func TestSourceController_NoBuffer(t *testing.T) {
	c, _ := newTestController(&FakeOutput{}, NewFakeLoader())
	_, err := c.StartFrom(0, nil)
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestSourceController_LoadBuffer(t *testing.T) {
	l := NewFakeLoader()
	l.Add("song.mp3", 42)
	c, _ := newTestController(&FakeOutput{}, l)

	track, buf, err := c.LoadBuffer(context.Background(), "song.mp3")
	require.NoError(t, err)
	assert.Equal(t, "song.mp3", track.Title)
	assert.Equal(t, 42.0, track.Duration)
	assert.Equal(t, int64(len("audio:song.mp3")), track.Size)
	assert.Equal(t, 42.0, buf.Duration())

	assert.Empty(t, c.Title(), "LoadBuffer must not install the buffer")
	c.Replace(track.Title, buf)
	assert.Equal(t, "song.mp3", c.Title())
}

func TestSourceController_LoadBufferErrors(t *testing.T) {
	l := NewFakeLoader()
	l.FailFetch("gone.mp3", errors.New("404"))
	l.AddCorrupt("bad.mp3")
	c, _ := newTestController(&FakeOutput{}, l)

	_, _, err := c.LoadBuffer(context.Background(), "gone.mp3")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "gone.mp3", fe.Title)

	_, _, err = c.LoadBuffer(context.Background(), "bad.mp3")
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "bad.mp3", de.Title)
}
