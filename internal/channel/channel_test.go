package channel

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubentxu/hodei-pipelines/internal/logging"
)

type fakeSink struct {
	mu          sync.Mutex
	active      map[string]string // workerID -> executionID
	failUntil   int
	calls       int
	results     []ExecutionResult
	statusCalls int
	logCalls    int
}

func newFakeSink() *fakeSink { return &fakeSink{active: make(map[string]string)} }

func (f *fakeSink) ActiveExecutionForWorker(workerID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.active[workerID]
	return id, ok
}

func (f *fakeSink) HandleStatusUpdate(executionID string, update StatusUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
}

func (f *fakeSink) HandleLogChunk(executionID string, chunk LogChunk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logCalls++
}

func (f *fakeSink) HandleExecutionResult(executionID string, result ExecutionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failUntil {
		return assert.AnError
	}
	f.results = append(f.results, result)
	return nil
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func newTestLogger() *logging.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ErrorLevel
	return logging.New(cfg)
}

func TestRegistrationAndConnectedWorkers(t *testing.T) {
	ch := New(newTestLogger())
	sink := newFakeSink()
	ch.SetEngine(sink)

	srv := httptest.NewServer(http.HandlerFunc(ch.ServeHTTP))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WorkerMessage{Kind: KindRegisterRequest, RegisterRequest: &RegisterRequest{WorkerID: "w1"}}))

	require.Eventually(t, func() bool { return ch.IsWorkerConnected("w1") }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"w1"}, ch.ConnectedWorkers())
}

func TestFirstFrameMustBeRegisterRequest(t *testing.T) {
	ch := New(newTestLogger())
	ch.SetEngine(newFakeSink())

	srv := httptest.NewServer(http.HandlerFunc(ch.ServeHTTP))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WorkerMessage{Kind: KindStatusUpdate, StatusUpdate: &StatusUpdate{EventType: WireStageStarted}}))

	require.Eventually(t, func() bool {
		_, _, err := conn.ReadMessage()
		return err != nil
	}, time.Second, 10*time.Millisecond)
}

func TestSendExecutionAssignmentDeliversFIFO(t *testing.T) {
	ch := New(newTestLogger())
	ch.SetEngine(newFakeSink())

	srv := httptest.NewServer(http.HandlerFunc(ch.ServeHTTP))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(WorkerMessage{Kind: KindRegisterRequest, RegisterRequest: &RegisterRequest{WorkerID: "w2"}}))
	require.Eventually(t, func() bool { return ch.IsWorkerConnected("w2") }, time.Second, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, ch.SendExecutionAssignment("w2", ExecutionAssignment{ExecutionID: string(rune('a' + i))}))
	}

	var got []string
	for i := 0; i < 3; i++ {
		var msg OrchestratorMessage
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, KindExecutionAssignment, msg.Kind)
		got = append(got, msg.ExecutionAssignment.ExecutionID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestExecutionResultRetriesUpToThreeTimes(t *testing.T) {
	ch := New(newTestLogger())
	sink := newFakeSink()
	sink.failUntil = 2
	sink.active["w3"] = "exec-1"
	ch.SetEngine(sink)

	srv := httptest.NewServer(http.HandlerFunc(ch.ServeHTTP))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(WorkerMessage{Kind: KindRegisterRequest, RegisterRequest: &RegisterRequest{WorkerID: "w3"}}))
	require.Eventually(t, func() bool { return ch.IsWorkerConnected("w3") }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(WorkerMessage{Kind: KindExecutionResult, ExecutionResult: &ExecutionResult{Success: true, ExitCode: 0}}))

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.results) == 1
	}, 2*time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	assert.Equal(t, 3, sink.calls, "third attempt must be the one that succeeds")
	sink.mu.Unlock()
}

func TestSendToUnknownWorkerReturnsFalse(t *testing.T) {
	ch := New(newTestLogger())
	assert.False(t, ch.SendExecutionAssignment("ghost", ExecutionAssignment{}))
}
