package workerrt

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rubentxu/hodei-pipelines/internal/channel"
)

type recordingEmitter struct {
	mu       sync.Mutex
	statuses []channel.StatusUpdate
	logs     []channel.LogChunk
}

func (r *recordingEmitter) emitStatus(u channel.StatusUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, u)
}

func (r *recordingEmitter) emitLog(c channel.LogChunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, c)
}

func TestRunShellTaskSuccessEmitsStageAndStepEvents(t *testing.T) {
	em := &recordingEmitter{}
	task := &channel.WireShell{Commands: []string{"echo one", "echo two"}}

	success, exitCode, details := runShellTask(context.Background(), task, nil, em)

	assert.True(t, success)
	assert.Equal(t, int32(0), exitCode)
	assert.Empty(t, details)

	var kinds []channel.WireEventType
	for _, s := range em.statuses {
		kinds = append(kinds, s.EventType)
	}
	assert.Equal(t, []channel.WireEventType{
		channel.WireStageStarted,
		channel.WireStepStarted,
		channel.WireStepCompleted,
		channel.WireStepStarted,
		channel.WireStepCompleted,
		channel.WireStageCompleted,
	}, kinds)
}

func TestRunShellTaskFailureReportsExitCode(t *testing.T) {
	em := &recordingEmitter{}
	task := &channel.WireShell{Commands: []string{"exit 7"}}

	success, exitCode, _ := runShellTask(context.Background(), task, nil, em)

	assert.False(t, success)
	assert.Equal(t, int32(7), exitCode)
}

func TestRunShellTaskStreamsStdoutLines(t *testing.T) {
	em := &recordingEmitter{}
	task := &channel.WireShell{Commands: []string{"printf 'line1\\nline2\\n'"}}

	success, _, _ := runShellTask(context.Background(), task, nil, em)
	assert.True(t, success)

	var lines []string
	for _, l := range em.logs {
		assert.Equal(t, channel.WireStdout, l.Stream)
		lines = append(lines, string(l.Content))
	}
	assert.Equal(t, []string{"line1\n", "line2\n"}, lines)
}

func TestRunScriptTaskExecutesBody(t *testing.T) {
	em := &recordingEmitter{}
	task := &channel.WireScript{ScriptContent: "#!/bin/sh\necho scripted\n"}

	success, exitCode, _ := runScriptTask(context.Background(), task, nil, em)

	assert.True(t, success)
	assert.Equal(t, int32(0), exitCode)
	assert.Len(t, em.logs, 1)
	assert.Equal(t, "scripted\n", string(em.logs[0].Content))
}
