// Package audit records enforcement decisions and completed interactions
// in an append-only store. Entries are write-once: the core never mutates
// or deletes them, and retention is an external concern.
package audit

import (
	"sync"
	"time"
)

// Status classifies the outcome an entry records.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusBlocked   Status = "blocked"
	StatusEscalated Status = "escalated"
	StatusError     Status = "error"
)

// Entry is one audit row. Any stage may record a granular entry for a
// single decision; the audit stage records one summary entry per
// completed interaction.
type Entry struct {
	ID            int64     `json:"id,omitempty"`
	Timestamp     time.Time `json:"ts"`
	PolicyName    string    `json:"policy_name"`
	PolicyVersion string    `json:"policy_version"`
	Status        Status    `json:"status"`
	Input         string    `json:"input,omitempty"`
	Output        string    `json:"output,omitempty"`
	CheckName     string    `json:"check_name,omitempty"`
	CheckResult   string    `json:"check_result,omitempty"`
	CheckDetail   string    `json:"check_detail,omitempty"`
	ToolCalls     string    `json:"tool_calls,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Recorder accepts audit entries. Implementations must treat recording
// as best-effort from the pipeline's point of view: enforcement already
// happened by the time an entry is written.
type Recorder interface {
	Record(e Entry) error
}

// MemoryRecorder keeps entries in memory. Used in tests and as the
// default recorder when no store is configured.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends the entry, assigning a sequential id.
func (m *MemoryRecorder) Record(e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *MemoryRecorder) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
