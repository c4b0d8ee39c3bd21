// Package audit implements an in-memory, append-only log of
// security-relevant events, grounded on the teacher's
// ComplianceAuditSystem.LogComplianceEvent
// (pkg/compliance/audit.go) — narrowed from a full compliance/DMCA
// reporting system down to the orchestrator's actual needs: the REST
// façade records failed logins and unauthorized startExecution attempts
// here.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded security-relevant event.
type Entry struct {
	ID        string
	Timestamp time.Time
	EventType string
	UserID    string
	TargetID  string
	Action    string
	Details   map[string]interface{}
}

// Log is an in-memory append-only audit trail.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

// New constructs an empty Log.
func New() *Log {
	return &Log{}
}

// Record appends an entry.
func (l *Log) Record(eventType, userID, targetID, action string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		TargetID:  targetID,
		Action:    action,
		Details:   details,
	})
}

// Entries returns a snapshot of the log, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
