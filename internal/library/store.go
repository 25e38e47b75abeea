package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/resonance-audio/resonance/internal/db"
)

// ErrNotFound is returned for a title the store does not know.
var ErrNotFound = errors.New("track not found")

// Track is a stored library entry.
type Track struct {
	Title     string
	Size      int64
	Duration  float64
	Format    string
	Artist    string
	Album     string
	MTime     int64 // file modification time, unix nanoseconds
	AddedAt   time.Time
	UpdatedAt time.Time
}

// Event is a recorded client status message.
type Event struct {
	ID        int64
	Title     string
	Action    string
	Size      int64
	Duration  float64
	Client    string
	CreatedAt time.Time
}

// Store persists tracks and events in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens the database at path, creating it if needed. ":memory:"
// opens a private in-memory database.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; one connection also keeps :memory: shared.
	conn.SetMaxOpenConns(1)

	if err := initSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: conn, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts t or updates the stored entry with the same title. The
// original added_at is kept.
func (s *Store) Upsert(ctx context.Context, t Track) error {
	now := s.now().UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (title, size, duration, format, artist, album, mtime, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(title) DO UPDATE SET
			size = excluded.size,
			duration = excluded.duration,
			format = excluded.format,
			artist = excluded.artist,
			album = excluded.album,
			mtime = excluded.mtime,
			updated_at = excluded.updated_at
	`, t.Title, t.Size, t.Duration, t.Format,
		db.NullString(t.Artist), db.NullString(t.Album), t.MTime, now, now)
	return err
}

// Get returns the track with the given title.
func (s *Store) Get(ctx context.Context, title string) (Track, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT title, size, duration, format, artist, album, mtime, added_at, updated_at
		FROM tracks WHERE title = ?
	`, title)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Track{}, ErrNotFound
	}
	return t, err
}

// List returns every track in the order it was added.
func (s *Store) List(ctx context.Context) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, size, duration, format, artist, album, mtime, added_at, updated_at
		FROM tracks ORDER BY added_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// Titles returns every title in the order it was added.
func (s *Store) Titles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM tracks ORDER BY added_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	titles := []string{}
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// UpdateAnnounced records the size and duration a client decoded for title.
// Reports false if the title is unknown.
func (s *Store) UpdateAnnounced(ctx context.Context, title string, size int64, duration float64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tracks SET size = ?, duration = ?, updated_at = ? WHERE title = ?
	`, size, duration, s.now().UnixNano(), title)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Remove deletes title and its events.
func (s *Store) Remove(ctx context.Context, title string) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM track_events WHERE title = ?`, title); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE title = ?`, title)
		return err
	})
}

// Prune deletes every track whose title is not in keep and returns the
// removed titles.
func (s *Store) Prune(ctx context.Context, keep []string) ([]string, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		keepSet[k] = struct{}{}
	}

	var removed []string
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT title FROM tracks`)
		if err != nil {
			return err
		}
		var stale []string
		for rows.Next() {
			var title string
			if err := rows.Scan(&title); err != nil {
				rows.Close()
				return err
			}
			if _, ok := keepSet[title]; !ok {
				stale = append(stale, title)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, title := range stale {
			if _, err := tx.ExecContext(ctx, `DELETE FROM track_events WHERE title = ?`, title); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE title = ?`, title); err != nil {
				return err
			}
		}
		removed = stale
		return nil
	})
	return removed, err
}

// RecordEvent appends a client event.
func (s *Store) RecordEvent(ctx context.Context, e Event) error {
	at := e.CreatedAt
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO track_events (title, action, size, duration, client, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Title, e.Action, e.Size, e.Duration, db.NullString(e.Client), at.UnixNano())
	return err
}

// Events returns up to limit events for title, newest first.
func (s *Store) Events(ctx context.Context, title string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, action, size, duration, client, created_at
		FROM track_events WHERE title = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, title, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var client sql.NullString
		var at int64
		if err := rows.Scan(&e.ID, &e.Title, &e.Action, &e.Size, &e.Duration, &client, &at); err != nil {
			return nil, err
		}
		e.Client = db.NullStringValue(client)
		e.CreatedAt = time.Unix(0, at)
		events = append(events, e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(r rowScanner) (Track, error) {
	var t Track
	var artist, album sql.NullString
	var added, updated int64
	if err := r.Scan(&t.Title, &t.Size, &t.Duration, &t.Format, &artist, &album, &t.MTime, &added, &updated); err != nil {
		return Track{}, err
	}
	t.Artist = db.NullStringValue(artist)
	t.Album = db.NullStringValue(album)
	t.AddedAt = time.Unix(0, added)
	t.UpdatedAt = time.Unix(0, updated)
	return t, nil
}
