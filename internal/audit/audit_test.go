package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAppendsEntry(t *testing.T) {
	log := New()
	log.Record("UNAUTHORIZED_START_EXECUTION", "alice", "job-1", "start_execution", map[string]interface{}{"reason": "bad token"})

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "UNAUTHORIZED_START_EXECUTION", entries[0].EventType)
	assert.Equal(t, "alice", entries[0].UserID)
	assert.Equal(t, "job-1", entries[0].TargetID)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestEntriesReturnsIndependentSnapshot(t *testing.T) {
	log := New()
	log.Record("TEMPLATE_VALIDATION_FAILED", "bob", "tmpl-1", "validate", nil)

	snapshot := log.Entries()
	log.Record("TEMPLATE_VALIDATION_FAILED", "carol", "tmpl-2", "validate", nil)

	assert.Len(t, snapshot, 1)
	assert.Len(t, log.Entries(), 2)
}
