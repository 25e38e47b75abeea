package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/resonance-audio/resonance/internal/audio/audiotest"
	"github.com/resonance-audio/resonance/internal/library"
	"github.com/resonance-audio/resonance/internal/protocol"
)

type fixture struct {
	srv  *Server
	lib  *library.Library
	http *httptest.Server
}

func newServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store, err := library.OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	lib, err := library.New(t.TempDir(), store, zaptest.NewLogger(t))
	require.NoError(t, err)

	opts.Library = lib
	opts.Logger = zaptest.NewLogger(t)
	return New(opts)
}

func startServer(t *testing.T, opts Options) *fixture {
	t.Helper()
	s := newServer(t, opts)
	ctx, cancel := context.WithCancel(context.Background())
	go s.hub.Run(ctx)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return &fixture{srv: s, lib: s.lib, http: ts}
}

func (f *fixture) url(path string, query ...string) string {
	u := f.http.URL + path
	if len(query) == 2 {
		u += "?" + query[0] + "=" + url.QueryEscape(query[1])
	}
	return u
}

func (f *fixture) upload(t *testing.T, title string, data []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(f.url("/upload", "title", title), "application/octet-stream", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads song lists until one satisfies ok.
func readUntil(t *testing.T, conn *websocket.Conn, ok func([]string) bool) []string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		msg, err := protocol.DecodeSongList(data)
		require.NoError(t, err)
		if ok(msg.Songs) {
			return msg.Songs
		}
	}
}

func TestGetAudio_Errors(t *testing.T) {
	f := startServer(t, Options{})

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing title", "", http.StatusBadRequest},
		{"traversal", "?title=" + url.QueryEscape("../secret.mp3"), http.StatusBadRequest},
		{"unknown", "?title=nope.mp3", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(f.http.URL + "/get-audio" + tt.query)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestUpload_ThenServe(t *testing.T) {
	f := startServer(t, Options{})
	data := audiotest.WAV(t, 8000, 16000)

	resp := f.upload(t, "tone.wav", data)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var info protocol.AudioInformation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "tone.wav", info.Title)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.InDelta(t, 2.0, info.Duration, 0.001)

	get, err := http.Get(f.url("/get-audio", "title", "tone.wav"))
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)
	assert.Equal(t, "audio/wav", get.Header.Get("Content-Type"))
	body, err := io.ReadAll(get.Body)
	require.NoError(t, err)
	assert.Equal(t, data, body)
}

func TestGetAudio_Range(t *testing.T) {
	f := startServer(t, Options{})
	data := audiotest.WAV(t, 8000, 800)
	require.Equal(t, http.StatusCreated, f.upload(t, "short.wav", data).StatusCode)

	req, err := http.NewRequest(http.MethodGet, f.url("/get-audio", "title", "short.wav"), nil)
	require.NoError(t, err)
	req.Header.Set("Range", "bytes=0-3")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), body)
}

func TestUpload_Rejections(t *testing.T) {
	f := startServer(t, Options{MaxUploadBytes: 1024})

	resp := f.upload(t, "noise.mp3", []byte("definitely not audio"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp = f.upload(t, "big.wav", audiotest.WAV(t, 8000, 8000))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = f.upload(t, "../escape.wav", audiotest.WAV(t, 8000, 10))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Post(f.url("/upload"), "application/octet-stream", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	titles, err := f.lib.Titles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestUpload_Broadcasts(t *testing.T) {
	f := startServer(t, Options{})
	conn := f.dial(t)

	welcome := readUntil(t, conn, func([]string) bool { return true })
	assert.Empty(t, welcome)

	require.Equal(t, http.StatusCreated, f.upload(t, "a.wav", audiotest.WAV(t, 8000, 100)).StatusCode)
	songs := readUntil(t, conn, func(s []string) bool { return slices.Contains(s, "a.wav") })
	assert.Equal(t, []string{"a.wav"}, songs)
}

func TestSongs(t *testing.T) {
	f := startServer(t, Options{})
	require.Equal(t, http.StatusCreated, f.upload(t, "a.wav", audiotest.WAV(t, 8000, 100)).StatusCode)
	require.Equal(t, http.StatusCreated, f.upload(t, "b.wav", audiotest.WAV(t, 8000, 100)).StatusCode)

	resp, err := http.Get(f.url("/songs"))
	require.NoError(t, err)
	defer resp.Body.Close()
	var msg protocol.SongListMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, []string{"a.wav", "b.wav"}, msg.Songs)
}

func postAction(t *testing.T, f *fixture, title, body string) int {
	t.Helper()
	resp, err := http.Post(f.url("/action", "title", title), "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestAction_RecordsEvent(t *testing.T) {
	f := startServer(t, Options{})
	require.Equal(t, http.StatusCreated, f.upload(t, "a.wav", audiotest.WAV(t, 8000, 100)).StatusCode)

	code := postAction(t, f, "a.wav", `{"action":"PLAY","payload":{"title":"a.wav","size":10,"duration":1.5}}`)
	require.Equal(t, http.StatusNoContent, code)
	code = postAction(t, f, "a.wav", `{"action":"SEEK","payload":{"title":"a.wav","size":10,"duration":1.5}}`)
	require.Equal(t, http.StatusNoContent, code)

	resp, err := http.Get(f.url("/tracks/a.wav/events"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []eventResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 2)
	assert.Equal(t, "SEEK", events[0].Action, "newest first")
	assert.Equal(t, "PLAY", events[1].Action)
	assert.Equal(t, 1.5, events[1].Duration)
}

func TestAction_Invalid(t *testing.T) {
	f := startServer(t, Options{})

	tests := []struct {
		name  string
		title string
		body  string
	}{
		{"not json", "a.wav", `nope`},
		{"unknown action", "a.wav", `{"action":"REWIND","payload":{"title":"a.wav"}}`},
		{"title mismatch", "b.wav", `{"action":"PLAY","payload":{"title":"a.wav"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, postAction(t, f, tt.title, tt.body))
		})
	}
}

func TestSocket_NewTrackUpdatesAndRebroadcasts(t *testing.T) {
	f := startServer(t, Options{})
	require.Equal(t, http.StatusCreated, f.upload(t, "a.wav", audiotest.WAV(t, 8000, 100)).StatusCode)

	conn := f.dial(t)
	readUntil(t, conn, func(s []string) bool { return slices.Contains(s, "a.wav") })

	msg, err := protocol.Encode(protocol.Message{
		Action:  protocol.ActionNewTrack,
		Payload: protocol.AudioInformation{Title: "a.wav", Size: 4242, Duration: 9.5},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	readUntil(t, conn, func(s []string) bool { return slices.Contains(s, "a.wav") })

	tr, err := f.lib.Store().Get(context.Background(), "a.wav")
	require.NoError(t, err)
	assert.Equal(t, int64(4242), tr.Size)
	assert.Equal(t, 9.5, tr.Duration)
}

func TestCORS_Preflight(t *testing.T) {
	f := startServer(t, Options{AllowedOrigins: []string{"http://app.test"}})

	req, err := http.NewRequest(http.MethodOptions, f.url("/action"), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://app.test")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.test")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServe_ScansAndShutsDown(t *testing.T) {
	s := newServer(t, Options{ShutdownTimeout: time.Second})
	wav := audiotest.WAV(t, 8000, 100)
	require.NoError(t, os.WriteFile(filepath.Join(s.lib.Dir(), "seed.wav"), wav, 0o644))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/songs")
	require.NoError(t, err)
	var msg protocol.SongListMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	resp.Body.Close()
	assert.Equal(t, []string{"seed.wav"}, msg.Songs)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
