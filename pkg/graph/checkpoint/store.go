// Package checkpoint persists execution snapshots so interrupted runs can be
// resumed.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists checkpoints keyed by (runID, nodeID).
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a checkpoint, overwriting any existing one for the pair.
	Save(runID, nodeID string, data []byte) error

	// Load retrieves a checkpoint. Returns ErrNotFound if absent.
	Load(runID, nodeID string) ([]byte, error)

	// List returns metadata for all checkpoints of a run, ordered by
	// sequence. A run with no checkpoints yields an empty slice, not an
	// error.
	List(runID string) ([]Info, error)

	// Delete removes one checkpoint. Deleting a missing checkpoint is not
	// an error.
	Delete(runID, nodeID string) error

	// DeleteRun removes every checkpoint of a run.
	DeleteRun(runID string) error

	// Close releases held resources.
	Close() error
}

// Info is checkpoint metadata, available without loading the state blob.
type Info struct {
	RunID     string
	NodeID    string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

var (
	// ErrNotFound indicates the requested checkpoint does not exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
