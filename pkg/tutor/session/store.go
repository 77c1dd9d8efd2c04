// Package session persists conversation state per thread so tutoring
// sessions survive process restarts. Threads are independent; within one
// thread, LockThread serializes runs.
package session

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("session: store closed")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	thread_id  TEXT PRIMARY KEY,
	state      BLOB NOT NULL,
	updated_at TEXT NOT NULL
);`

// Store keeps serialized conversation state keyed by thread ID in SQLite.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	closed bool
}

// Open creates or opens the session database at path. Use ":memory:" for
// an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from fragmenting across the pool.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: create schema: %w", err)
	}
	return &Store{db: db, locks: make(map[string]*sync.Mutex)}, nil
}

// LockThread acquires the per-thread lock and returns its release func.
// At most one run mutates a thread at a time.
func (s *Store) LockThread(threadID string) func() {
	s.mu.Lock()
	l, ok := s.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[threadID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Load returns the serialized state for threadID. ok is false for a thread
// with no saved state.
func (s *Store) Load(threadID string) (state []byte, ok bool, err error) {
	if s.isClosed() {
		return nil, false, ErrClosed
	}
	row := s.db.QueryRow("SELECT state FROM sessions WHERE thread_id = ?", threadID)
	if err := row.Scan(&state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("session: load %s: %w", threadID, err)
	}
	return state, true, nil
}

// Save writes the serialized state for threadID, replacing any previous one.
func (s *Store) Save(threadID string, state []byte) error {
	if s.isClosed() {
		return ErrClosed
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (thread_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		threadID, state, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("session: save %s: %w", threadID, err)
	}
	return nil
}

// Delete removes the thread's saved state. Deleting an unknown thread is
// not an error.
func (s *Store) Delete(threadID string) error {
	if s.isClosed() {
		return ErrClosed
	}
	if _, err := s.db.Exec("DELETE FROM sessions WHERE thread_id = ?", threadID); err != nil {
		return fmt.Errorf("session: delete %s: %w", threadID, err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
