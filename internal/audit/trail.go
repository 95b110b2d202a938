// Package audit provides an append-only audit trail for vote-path decisions.
// Events are stored as JSON lines in a local file, one record per decision,
// so an election operator can reconstruct what the gate answered and when.
//
// For production use, this should be replaced with a PostgreSQL-backed
// implementation.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event is a single audit entry written to the trail.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	VoterID   uint64    `json:"voter_id"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	Tx        string    `json:"tx,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Trail persists audit events as JSON lines in a local file.
// Thread-safe for concurrent use. All methods are safe on a nil receiver,
// so components can treat auditing as optional.
type Trail struct {
	mu   sync.Mutex
	path string
}

// NewTrail creates a Trail that appends to the given path.
// The file is created on first write if it does not exist.
func NewTrail(path string) *Trail {
	return &Trail{path: path}
}

// Record appends one event to the trail. The timestamp is stamped here so
// callers only describe what happened.
func (t *Trail) Record(e Event) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	e.Timestamp = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("audit: write: %w", err)
	}
	return nil
}
