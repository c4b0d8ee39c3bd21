// Package workerrt implements the Worker Runtime (C8): the out-of-process
// binary that dials the Worker Channel, executes assigned shell/script
// tasks, and streams status/log/result frames back. It logs through
// zerolog rather than the in-process internal/logging package, mirroring
// the teacher's split between a library-wide logger and ad hoc per-binary
// logging in cmd/* — here upgraded to a real structured logger since this
// is a genuinely separate process.
package workerrt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rubentxu/hodei-pipelines/internal/channel"
)

// Config configures one Runtime instance.
type Config struct {
	ServerURL string // ws://host:port/ws
	WorkerID  string
}

// Runtime is the Worker Runtime: one long-lived connection. Each
// execution_assignment runs on its own goroutine; the Runtime does not
// limit how many run at once, and cancel_signal or connection loss
// aborts the most recently started one.
type Runtime struct {
	cfg Config
	log zerolog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	writeMu    sync.Mutex
	cancelTask context.CancelFunc
}

// New constructs a Runtime.
func New(cfg Config, log zerolog.Logger) *Runtime {
	return &Runtime{cfg: cfg, log: log.With().Str("worker_id", cfg.WorkerID).Logger()}
}

// Run dials the channel, registers, and services frames until the
// connection drops or ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.cfg.ServerURL, nil)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
	defer conn.Close()
	stopOnCancel := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopOnCancel()

	if err := r.writeWorkerMessage(channel.WorkerMessage{
		Kind:            channel.KindRegisterRequest,
		RegisterRequest: &channel.RegisterRequest{WorkerID: r.cfg.WorkerID},
	}); err != nil {
		return err
	}
	r.log.Info().Msg("registered with orchestrator")

	for {
		var msg channel.OrchestratorMessage
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.log.Warn().Err(err).Msg("connection lost, terminating in-flight task")
			r.abortRunningTask()
			return err
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			r.log.Warn().Err(err).Msg("malformed orchestrator frame")
			continue
		}

		switch msg.Kind {
		case channel.KindExecutionAssignment:
			if msg.ExecutionAssignment != nil {
				go r.execute(*msg.ExecutionAssignment)
			}
		case channel.KindCancelSignal:
			r.abortRunningTask()
		case channel.KindArtifact:
			// artifact fetch is out of scope for process-boundary execution;
			// acknowledged implicitly by continuing to serve the connection.
		}
	}
}

func (r *Runtime) abortRunningTask() {
	r.mu.Lock()
	cancel := r.cancelTask
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Runtime) execute(assignment channel.ExecutionAssignment) {
	taskCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancelTask = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.cancelTask = nil
		r.mu.Unlock()
		cancel()
	}()

	if assignment.Definition.TimeoutSeconds > 0 {
		var timeoutCancel context.CancelFunc
		taskCtx, timeoutCancel = context.WithTimeout(taskCtx, time.Duration(assignment.Definition.TimeoutSeconds)*time.Second)
		defer timeoutCancel()
	}

	var success bool
	var exitCode int32
	var details string

	switch {
	case assignment.Definition.Shell != nil:
		success, exitCode, details = runShellTask(taskCtx, assignment.Definition.Shell, assignment.Definition.EnvVars, r)
	case assignment.Definition.Script != nil:
		success, exitCode, details = runScriptTask(taskCtx, assignment.Definition.Script, assignment.Definition.EnvVars, r)
	default:
		success, exitCode, details = false, -1, "execution assignment carried neither a shell nor a script task"
	}

	if err := r.writeWorkerMessage(channel.WorkerMessage{
		Kind: channel.KindExecutionResult,
		ExecutionResult: &channel.ExecutionResult{
			Success:  success,
			ExitCode: exitCode,
			Details:  details,
		},
	}); err != nil {
		r.log.Error().Err(err).Msg("failed to send execution_result")
	}
}

func (r *Runtime) emitStatus(update channel.StatusUpdate) {
	if update.Timestamp == 0 {
		update.Timestamp = time.Now().Unix()
	}
	if err := r.writeWorkerMessage(channel.WorkerMessage{Kind: channel.KindStatusUpdate, StatusUpdate: &update}); err != nil {
		r.log.Warn().Err(err).Msg("failed to send status_update")
	}
}

func (r *Runtime) emitLog(chunk channel.LogChunk) {
	if err := r.writeWorkerMessage(channel.WorkerMessage{Kind: channel.KindLogChunk, LogChunk: &chunk}); err != nil {
		r.log.Warn().Err(err).Msg("failed to send log_chunk")
	}
}

func (r *Runtime) writeWorkerMessage(msg channel.WorkerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return conn.WriteMessage(websocket.BinaryMessage, data)
}
