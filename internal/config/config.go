package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "resonance"

type Config struct {
	Server ServerConfig `koanf:"server"`
	Client ClientConfig `koanf:"client"`
	Log    LogConfig    `koanf:"log"`
}

// ServerConfig holds the library server settings.
type ServerConfig struct {
	Addr            string   `koanf:"addr"`              // listen address, e.g. ":8080"
	MusicDir        string   `koanf:"music_dir"`         // directory served and scanned
	DBPath          string   `koanf:"db_path"`           // sqlite index
	MaxUploadMB     int      `koanf:"max_upload_mb"`     // upload size limit
	AllowedOrigins  []string `koanf:"allowed_origins"`   // CORS and WebSocket origins, "*" for any
	WatchDebounceMS int      `koanf:"watch_debounce_ms"` // coalescing window for directory events
	PingIntervalSec int      `koanf:"ping_interval_sec"` // WebSocket keep-alive
	ShutdownSec     int      `koanf:"shutdown_sec"`      // graceful shutdown timeout
}

// ClientConfig holds the player settings.
type ClientConfig struct {
	ServerURL       string  `koanf:"server_url"`
	ProgressFPS     int     `koanf:"progress_fps"`      // display refresh rate while playing
	SampleRate      int     `koanf:"sample_rate"`       // audio device rate
	BufferMS        int     `koanf:"buffer_ms"`         // audio device latency
	Volume          float64 `koanf:"volume"`            // initial level, 0.0 to 1.0
	FetchTimeoutSec int     `koanf:"fetch_timeout_sec"` // audio download timeout
	SeekStepSec     float64 `koanf:"seek_step_sec"`     // relative seek step
	Notifications   bool    `koanf:"notifications"`     // desktop notification on track change
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level      string `koanf:"level"` // debug, info, warn, error
	File       string `koanf:"file"`  // rotated log file, empty for none
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MusicDir:        "music",
			DBPath:          filepath.Join(xdg.DataHome, appName, "library.db"),
			MaxUploadMB:     200,
			AllowedOrigins:  []string{"*"},
			WatchDebounceMS: 500,
			PingIntervalSec: 30,
			ShutdownSec:     10,
		},
		Client: ClientConfig{
			ServerURL:       "http://localhost:8080",
			ProgressFPS:     30,
			SampleRate:      44100,
			BufferMS:        100,
			Volume:          1,
			FetchTimeoutSec: 60,
			SeekStepSec:     5,
			Notifications:   true,
		},
		Log: LogConfig{
			Level:      "info",
			File:       filepath.Join(xdg.StateHome, appName, "resonance.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the config files, then .env, then RESONANCE_* variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return LoadFrom(getConfigPaths(), os.LookupEnv)
}

// LoadFrom reads the given files (last wins, missing files skipped) and
// applies environment overrides looked up with lookup.
func LoadFrom(paths []string, lookup func(string) (string, bool)) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg, lookup)

	cfg.Server.MusicDir = expandPath(cfg.Server.MusicDir)
	cfg.Server.DBPath = expandPath(cfg.Server.DBPath)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Client.ServerURL = strings.TrimSuffix(cfg.Client.ServerURL, "/")

	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	getEnv := func(key, fallback string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return fallback
	}
	getEnvInt := func(key string, fallback int) int {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return fallback
	}

	cfg.Server.Addr = getEnv("RESONANCE_ADDR", cfg.Server.Addr)
	cfg.Server.MusicDir = getEnv("RESONANCE_MUSIC_DIR", cfg.Server.MusicDir)
	cfg.Server.DBPath = getEnv("RESONANCE_DB_PATH", cfg.Server.DBPath)
	cfg.Server.MaxUploadMB = getEnvInt("RESONANCE_MAX_UPLOAD_MB", cfg.Server.MaxUploadMB)
	if v, ok := lookup("RESONANCE_ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	cfg.Client.ServerURL = getEnv("RESONANCE_SERVER_URL", cfg.Client.ServerURL)
	cfg.Log.Level = getEnv("RESONANCE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("RESONANCE_LOG_FILE", cfg.Log.File)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/resonance/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName, "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// MaxUploadBytes returns the upload limit in bytes.
func (c ServerConfig) MaxUploadBytes() int64 {
	return int64(max(c.MaxUploadMB, 1)) << 20
}

// WatchDebounce returns the directory event coalescing window.
func (c ServerConfig) WatchDebounce() time.Duration {
	return time.Duration(max(c.WatchDebounceMS, 0)) * time.Millisecond
}

// PingInterval returns the WebSocket keep-alive period.
func (c ServerConfig) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSec) * time.Second
}

// ShutdownTimeout returns the graceful shutdown deadline.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	if c.ShutdownSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownSec) * time.Second
}

// ProgressInterval returns the display refresh period.
func (c ClientConfig) ProgressInterval() time.Duration {
	if c.ProgressFPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.ProgressFPS)
}

// FetchTimeout returns the audio download timeout.
func (c ClientConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// Buffer returns the audio device latency.
func (c ClientConfig) Buffer() time.Duration {
	return time.Duration(c.BufferMS) * time.Millisecond
}
