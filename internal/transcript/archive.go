package transcript

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Archive persists transcript entries to SQLite for post-session review.
// It mirrors the in-memory history; it is never read on the hot path.
type Archive struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// OpenArchive opens (or creates) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	if path == "" {
		return nil, fmt.Errorf("transcript: archive path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS transcript_entries (
	  id         TEXT PRIMARY KEY,
	  role       TEXT NOT NULL,
	  content    TEXT NOT NULL,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_created ON transcript_entries(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive schema: %w", err)
	}

	return &Archive{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Append persists one entry under a fresh ULID.
func (a *Archive) Append(e Entry) error {
	a.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(e.Timestamp), a.entropy)
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("generating entry id: %w", err)
	}

	_, err = a.db.Exec(
		`INSERT INTO transcript_entries (id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		id.String(), string(e.Role), e.Content, e.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

// Recent returns up to limit archived entries, oldest first.
func (a *Archive) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := a.db.Query(
		`SELECT role, content, created_at FROM transcript_entries
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var role, content string
		var createdAt int64
		if err := rows.Scan(&role, &content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, Entry{
			Role:      Role(role),
			Content:   content,
			Timestamp: time.UnixMilli(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Flip to chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}
