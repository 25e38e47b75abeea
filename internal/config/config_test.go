//nolint:goconst // test cases intentionally repeat strings for readability
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"tilde expands to home", "~/music", filepath.Join(home, "music")},
		{"tilde with nested path", "~/music/library/albums", filepath.Join(home, "music", "library", "albums")},
		{"absolute path unchanged", "/usr/local/music", "/usr/local/music"},
		{"relative path unchanged", "music/albums", "music/albums"},
		{"empty string unchanged", "", ""},
		{"tilde only", "~", home},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) == 0 {
		t.Fatal("getConfigPaths() returned empty slice")
	}
	lastPath := paths[len(paths)-1]
	if lastPath != "config.toml" {
		t.Errorf("last config path = %q, want %q", lastPath, "config.toml")
	}
}

func noEnv(string) (string, bool) { return "", false }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom([]string{filepath.Join(t.TempDir(), "missing.toml")}, noEnv)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Client.ProgressFPS != 30 {
		t.Errorf("Client.ProgressFPS = %d, want 30", cfg.Client.ProgressFPS)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("Server.AllowedOrigins = %v, want [*]", cfg.Server.AllowedOrigins)
	}
}

func TestLoadFrom_LastFileWins(t *testing.T) {
	global := writeFile(t, "global.toml", `
[server]
addr = ":9000"
music_dir = "/srv/music"
`)
	local := writeFile(t, "local.toml", `
[server]
addr = ":9100"

[client]
progress_fps = 60
`)

	cfg, err := LoadFrom([]string{global, local}, noEnv)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Server.Addr != ":9100" {
		t.Errorf("Server.Addr = %q, want :9100", cfg.Server.Addr)
	}
	if cfg.Server.MusicDir != "/srv/music" {
		t.Errorf("Server.MusicDir = %q, want /srv/music", cfg.Server.MusicDir)
	}
	if cfg.Client.ProgressFPS != 60 {
		t.Errorf("Client.ProgressFPS = %d, want 60", cfg.Client.ProgressFPS)
	}
	// Untouched sections keep their defaults.
	if cfg.Client.SampleRate != 44100 {
		t.Errorf("Client.SampleRate = %d, want 44100", cfg.Client.SampleRate)
	}
}

func TestLoadFrom_EnvOverridesFiles(t *testing.T) {
	path := writeFile(t, "config.toml", `
[server]
addr = ":9000"
max_upload_mb = 5

[client]
server_url = "http://file:1/"
`)
	env := map[string]string{
		"RESONANCE_ADDR":            ":7000",
		"RESONANCE_MAX_UPLOAD_MB":   "not a number",
		"RESONANCE_SERVER_URL":      "http://env:2/",
		"RESONANCE_ALLOWED_ORIGINS": "http://a.test, http://b.test,",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg, err := LoadFrom([]string{path}, lookup)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Server.Addr = %q, want :7000", cfg.Server.Addr)
	}
	if cfg.Server.MaxUploadMB != 5 {
		t.Errorf("Server.MaxUploadMB = %d, want 5 (invalid env ignored)", cfg.Server.MaxUploadMB)
	}
	if cfg.Client.ServerURL != "http://env:2" {
		t.Errorf("Client.ServerURL = %q, want http://env:2", cfg.Client.ServerURL)
	}
	want := []string{"http://a.test", "http://b.test"}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[0] != want[0] || cfg.Server.AllowedOrigins[1] != want[1] {
		t.Errorf("Server.AllowedOrigins = %v, want %v", cfg.Server.AllowedOrigins, want)
	}
}

func TestLoadFrom_InvalidTOML(t *testing.T) {
	path := writeFile(t, "bad.toml", "[server\naddr = ")
	if _, err := LoadFrom([]string{path}, noEnv); err == nil {
		t.Error("LoadFrom() error = nil, want parse error")
	}
}

func TestDurations(t *testing.T) {
	c := ClientConfig{ProgressFPS: 50, FetchTimeoutSec: 3, BufferMS: 20}
	if got := c.ProgressInterval(); got != 20*time.Millisecond {
		t.Errorf("ProgressInterval() = %v, want 20ms", got)
	}
	if got := (ClientConfig{}).ProgressInterval(); got != 0 {
		t.Errorf("ProgressInterval() with 0 fps = %v, want 0", got)
	}
	if got := c.FetchTimeout(); got != 3*time.Second {
		t.Errorf("FetchTimeout() = %v, want 3s", got)
	}

	s := ServerConfig{MaxUploadMB: 2}
	if got := s.MaxUploadBytes(); got != 2<<20 {
		t.Errorf("MaxUploadBytes() = %d, want %d", got, 2<<20)
	}
	if got := (ServerConfig{}).ShutdownTimeout(); got != 10*time.Second {
		t.Errorf("ShutdownTimeout() = %v, want 10s", got)
	}
}
