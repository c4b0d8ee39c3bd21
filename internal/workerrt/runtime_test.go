package workerrt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubentxu/hodei-pipelines/internal/channel"
	"github.com/rubentxu/hodei-pipelines/internal/logging"
)

type collectingSink struct {
	mu      sync.Mutex
	results []channel.ExecutionResult
	logs    []channel.LogChunk
}

func (s *collectingSink) ActiveExecutionForWorker(workerID string) (string, bool) {
	return "exec-1", true
}
func (s *collectingSink) HandleStatusUpdate(executionID string, update channel.StatusUpdate) {}
func (s *collectingSink) HandleLogChunk(executionID string, chunk channel.LogChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, chunk)
}
func (s *collectingSink) HandleExecutionResult(executionID string, result channel.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func TestRuntimeExecutesAssignmentEndToEnd(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ErrorLevel
	ch := channel.New(logging.New(cfg))
	sink := &collectingSink{}
	ch.SetEngine(sink)

	srv := httptest.NewServer(http.HandlerFunc(ch.ServeHTTP))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	rt := New(Config{ServerURL: wsURL, WorkerID: "w-e2e"}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rt.Run(ctx)

	require.Eventually(t, func() bool { return ch.IsWorkerConnected("w-e2e") }, time.Second, 10*time.Millisecond)

	ok := ch.SendExecutionAssignment("w-e2e", channel.ExecutionAssignment{
		ExecutionID: "exec-1",
		Definition: channel.WireDefinition{
			Shell: &channel.WireShell{Commands: []string{"echo hello"}},
		},
	})
	require.True(t, ok)

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.results) == 1
	}, 2*time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	assert.True(t, sink.results[0].Success)
	require.Len(t, sink.logs, 1)
	assert.Equal(t, "hello\n", string(sink.logs[0].Content))
	sink.mu.Unlock()
}
