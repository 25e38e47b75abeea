package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE track_events (id INTEGER PRIMARY KEY, title TEXT)`)
	if err != nil {
		db.Close()
		t.Fatalf("failed to create table: %v", err)
	}

	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM track_events`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return count
}

func TestWithTx_Commit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		for _, title := range []string{"a.mp3", "b.mp3"} {
			if _, err := tx.Exec(`INSERT INTO track_events (title) VALUES (?)`, title); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	if count := countRows(t, db); count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	testErr := errors.New("test error")

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO track_events (title) VALUES (?)`, "a.mp3"); err != nil {
			return err
		}
		return testErr
	})

	if !errors.Is(err, testErr) {
		t.Fatalf("WithTx should return the error: got %v, want %v", err, testErr)
	}
	if count := countRows(t, db); count != 0 {
		t.Errorf("count = %d, want 0 (rolled back)", count)
	}
}

func TestWithTx_CanceledContext(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WithTx(ctx, db, func(_ *sql.Tx) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("WithTx should fail on a canceled context")
	}
	if called {
		t.Error("fn ran despite canceled context")
	}
}

func TestNullString(t *testing.T) {
	if got := NullString(""); got.Valid {
		t.Errorf("NullString(\"\").Valid = true, want false")
	}
	if got := NullStringValue(NullString("x")); got != "x" {
		t.Errorf("round trip = %q, want x", got)
	}
	if got := NullStringValue(sql.NullString{String: "stale", Valid: false}); got != "" {
		t.Errorf("NullStringValue(invalid) = %q, want empty", got)
	}
}
