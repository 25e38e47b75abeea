package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/resonance-audio/resonance/internal/audio/audiotest"
	"github.com/resonance-audio/resonance/internal/library"
	"github.com/resonance-audio/resonance/internal/server"
)

func startServer(t *testing.T) (*library.Library, string) {
	t.Helper()
	store, err := library.OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	lib, err := library.New(t.TempDir(), store, zaptest.NewLogger(t))
	require.NoError(t, err)

	srv := server.New(server.Options{Library: lib, Logger: zaptest.NewLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Hub().Run(ctx)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return lib, ts.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-file="))
	err := cmd.Execute()
	return out.String(), err
}

func TestUpload_StoresAndAnnounces(t *testing.T) {
	lib, url := startServer(t)
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, os.WriteFile(path, audiotest.WAV(t, 8000, 24000), 0o644))

	out, err := run(t, "upload", path, "--server", url, "--title", "Tone.wav")
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded Tone.wav")
	assert.Contains(t, out, "0:03")

	titles, err := lib.Titles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Tone.wav"}, titles)

	require.Eventually(t, func() bool {
		events, err := lib.Store().Events(context.Background(), "Tone.wav", 10)
		return err == nil && len(events) == 1 && events[0].Action == "NEW_TRACK"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestUpload_RejectsUndecodableFile(t *testing.T) {
	lib, url := startServer(t)
	path := filepath.Join(t.TempDir(), "notes.mp3")
	require.NoError(t, os.WriteFile(path, []byte("not audio at all"), 0o644))

	_, err := run(t, "upload", path, "--server", url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode audio file")

	titles, err := lib.Titles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestUpload_RequiresFile(t *testing.T) {
	_, err := run(t, "upload")
	assert.Error(t, err)
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"serve", "play", "upload"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{2.6, "0:03"},
		{61, "1:01"},
		{3600, "60:00"},
	}
	for _, tt := range tests {
		if got := formatSeconds(tt.in); got != tt.want {
			t.Errorf("formatSeconds(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
