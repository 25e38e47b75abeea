// Package library manages the server's music directory and its track index.
package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/audio"
)

var (
	// ErrInvalidTitle is returned for titles that are not a plain file name.
	ErrInvalidTitle = errors.New("invalid track title")
	// ErrTooLarge is returned for uploads over the size limit.
	ErrTooLarge = errors.New("upload too large")
)

// UnsupportedError reports an upload that is not decodable audio.
type UnsupportedError struct {
	Title string
	Err   error
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: unsupported audio: %v", e.Title, e.Err)
}

func (e *UnsupportedError) Unwrap() error { return e.Err }

// tempPrefix marks partial uploads; scans and the watcher skip them.
const tempPrefix = ".upload-"

// Library indexes the audio files of one directory.
type Library struct {
	dir   string
	store *Store
	log   *zap.Logger

	// mu serializes scans and saves.
	mu sync.Mutex
}

// New creates a library over dir, creating the directory if needed.
func New(dir string, store *Store, log *zap.Logger) (*Library, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create music dir: %w", err)
	}
	return &Library{dir: dir, store: store, log: log}, nil
}

// Dir returns the music directory.
func (l *Library) Dir() string { return l.dir }

// Store returns the underlying track store.
func (l *Library) Store() *Store { return l.store }

// CleanTitle validates that title names a file directly inside the music
// directory.
func CleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" || title == "." || title == ".." ||
		strings.ContainsAny(title, `/\`) || filepath.Base(title) != title ||
		strings.HasPrefix(title, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTitle, title)
	}
	return title, nil
}

// IsAudioFile reports whether name has a supported extension.
func IsAudioFile(name string) bool {
	return slices.Contains(audio.Extensions, strings.ToLower(filepath.Ext(name)))
}

// Titles returns the indexed titles in the order they were added.
func (l *Library) Titles(ctx context.Context) ([]string, error) {
	return l.store.Titles(ctx)
}

// Path returns the file path of an indexed title.
func (l *Library) Path(ctx context.Context, title string) (string, error) {
	name, err := CleanTitle(title)
	if err != nil {
		return "", err
	}
	if _, err := l.store.Get(ctx, name); err != nil {
		return "", err
	}
	return filepath.Join(l.dir, name), nil
}

// ScanResult lists what a scan changed.
type ScanResult struct {
	Added   []string
	Updated []string
	Removed []string
	Skipped []string // files that are not decodable audio
}

// Changed reports whether the index changed.
func (r ScanResult) Changed() bool {
	return len(r.Added)+len(r.Updated)+len(r.Removed) > 0
}

// Scan brings the index in line with the directory. Unchanged files are not
// decoded again.
func (l *Library) Scan(ctx context.Context) (ScanResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return ScanResult{}, fmt.Errorf("read music dir: %w", err)
	}
	files := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") && IsAudioFile(e.Name())
	})

	existing, err := l.store.List(ctx)
	if err != nil {
		return ScanResult{}, err
	}
	known := lo.KeyBy(existing, func(t Track) string { return t.Title })

	var result ScanResult
	var present []string
	for _, e := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		name := e.Name()
		info, err := e.Info()
		if err != nil {
			l.log.Warn("stat failed", zap.String("file", name), zap.Error(err))
			continue
		}
		prev, isKnown := known[name]
		if isKnown && prev.MTime == info.ModTime().UnixNano() && prev.Size == info.Size() {
			present = append(present, name)
			continue
		}

		t, err := l.index(ctx, name, info.ModTime().UnixNano())
		if err != nil {
			var ue *UnsupportedError
			if errors.As(err, &ue) {
				l.log.Warn("skipping undecodable file", zap.String("file", name), zap.Error(err))
				result.Skipped = append(result.Skipped, name)
				continue
			}
			return result, err
		}
		present = append(present, t.Title)
		if isKnown {
			result.Updated = append(result.Updated, name)
		} else {
			result.Added = append(result.Added, name)
		}
	}

	removed, err := l.store.Prune(ctx, present)
	if err != nil {
		return result, fmt.Errorf("prune index: %w", err)
	}
	result.Removed = removed

	l.log.Info("library scanned",
		zap.Int("files", len(files)),
		zap.Int("added", len(result.Added)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("removed", len(result.Removed)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func (l *Library) index(ctx context.Context, name string, mtime int64) (Track, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return Track{}, err
	}
	t, err := describe(name, data)
	if err != nil {
		return Track{}, err
	}
	t.MTime = mtime
	if err := l.store.Upsert(ctx, t); err != nil {
		return Track{}, fmt.Errorf("index %s: %w", name, err)
	}
	return t, nil
}

// describe probes data and reads its tags.
func describe(title string, data []byte) (Track, error) {
	info, err := audio.Probe(data)
	if err != nil {
		return Track{}, &UnsupportedError{Title: title, Err: err}
	}
	t := Track{
		Title:    title,
		Size:     int64(len(data)),
		Duration: info.Duration,
		Format:   string(info.Format),
	}
	if m, err := tag.ReadFrom(bytes.NewReader(data)); err == nil {
		t.Artist = m.Artist()
		t.Album = m.Album()
	}
	return t, nil
}

// Save stores an uploaded file under title. The bytes must be decodable
// audio; the file appears in the directory atomically. A title without a
// supported extension gets one from the detected format.
func (l *Library) Save(ctx context.Context, title string, r io.Reader, limit int64) (Track, error) {
	name, err := CleanTitle(title)
	if err != nil {
		return Track{}, err
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Track{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return Track{}, ErrTooLarge
	}

	t, err := describe(name, data)
	if err != nil {
		return Track{}, err
	}
	if !IsAudioFile(name) {
		name += "." + strings.ToLower(t.Format)
		t.Title = name
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	mtime, err := l.writeAtomic(name, data)
	if err != nil {
		return Track{}, err
	}
	t.MTime = mtime
	if err := l.store.Upsert(ctx, t); err != nil {
		return Track{}, fmt.Errorf("index %s: %w", name, err)
	}
	l.log.Info("track saved",
		zap.String("title", name),
		zap.Int64("size", t.Size),
		zap.Float64("duration", t.Duration))
	return t, nil
}

func (l *Library) writeAtomic(name string, data []byte) (int64, error) {
	tmp, err := os.CreateTemp(l.dir, tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	final := filepath.Join(l.dir, name)
	if err := os.Rename(tmpPath, final); err != nil {
		return 0, fmt.Errorf("store upload: %w", err)
	}
	info, err := os.Stat(final)
	if err != nil {
		return 0, err
	}
	return info.ModTime().UnixNano(), nil
}

// Announce applies a client's NEW_TRACK report: the decoded size and
// duration replace the stored values. Reports false for unknown titles.
func (l *Library) Announce(ctx context.Context, title string, size int64, duration float64) (bool, error) {
	return l.store.UpdateAnnounced(ctx, title, size, duration)
}
