// Package channel implements the Worker Channel (C4): a bidirectional
// streaming hub with one connection per worker, grounded on the
// teacher's websocket hub in cmd/noisefs-webui (wsUpgrader / wsClients /
// per-client outbound channel / read-pump-drains-for-EOF pattern),
// generalized from a stats broadcast to the full worker registration,
// inbound-routing, and retry protocol this package implements.
//
// Messages are framed as JSON over a websocket binary connection rather
// than a hand-generated protobuf stub, since the oneof message variants
// translate directly onto tagged Go structs and the teacher's own
// streaming code (cmd/noisefs-webui, cmd/announce-webui) is itself
// JSON-over-websocket, not gRPC.
package channel

// WorkerMessageKind tags the oneof variant of an inbound WorkerMessage.
type WorkerMessageKind string

const (
	KindRegisterRequest WorkerMessageKind = "register_request"
	KindStatusUpdate    WorkerMessageKind = "status_update"
	KindLogChunk        WorkerMessageKind = "log_chunk"
	KindExecutionResult WorkerMessageKind = "execution_result"
)

// WorkerMessage is the worker-to-orchestrator wire message.
type WorkerMessage struct {
	Kind            WorkerMessageKind `json:"kind"`
	RegisterRequest *RegisterRequest  `json:"register_request,omitempty"`
	StatusUpdate    *StatusUpdate     `json:"status_update,omitempty"`
	LogChunk        *LogChunk         `json:"log_chunk,omitempty"`
	ExecutionResult *ExecutionResult  `json:"execution_result,omitempty"`
}

// RegisterRequest is the mandatory first frame on a new stream.
type RegisterRequest struct {
	WorkerID string `json:"worker_id"`
}

// WireEventType enumerates the status_update event types that travel on
// the wire (STATUS_UPDATE itself is synthesized by the Engine, never
// sent by a worker).
type WireEventType string

const (
	WireStageStarted   WireEventType = "STAGE_STARTED"
	WireStageCompleted WireEventType = "STAGE_COMPLETED"
	WireStepStarted    WireEventType = "STEP_STARTED"
	WireStepCompleted  WireEventType = "STEP_COMPLETED"
)

// StatusUpdate reports a lifecycle transition observed by the worker.
type StatusUpdate struct {
	EventType WireEventType `json:"event_type"`
	Message   string        `json:"message"`
	Timestamp int64         `json:"timestamp"`
}

// WireStream distinguishes stdout from stderr on the wire.
type WireStream string

const (
	WireStdout WireStream = "STDOUT"
	WireStderr WireStream = "STDERR"
)

// LogChunk carries a fragment of process output.
type LogChunk struct {
	Stream  WireStream `json:"stream"`
	Content []byte     `json:"content"`
}

// ExecutionResult is the terminal frame for one execution. It is the
// critical frame: its delivery into the Engine is retried.
type ExecutionResult struct {
	Success  bool   `json:"success"`
	ExitCode int32  `json:"exit_code"`
	Details  string `json:"details"`
}

// OrchestratorMessageKind tags the oneof variant of an outbound message.
type OrchestratorMessageKind string

const (
	KindExecutionAssignment OrchestratorMessageKind = "execution_assignment"
	KindCancelSignal        OrchestratorMessageKind = "cancel_signal"
	KindArtifact            OrchestratorMessageKind = "artifact"
)

// OrchestratorMessage is the orchestrator-to-worker wire message.
type OrchestratorMessage struct {
	Kind                OrchestratorMessageKind `json:"kind"`
	ExecutionAssignment *ExecutionAssignment    `json:"execution_assignment,omitempty"`
	CancelSignal        *CancelSignal           `json:"cancel_signal,omitempty"`
	Artifact            *ArtifactRef            `json:"artifact,omitempty"`
}

// ExecutionAssignment carries one execution's task definition to a worker.
type ExecutionAssignment struct {
	ExecutionID       string         `json:"execution_id"`
	Definition        WireDefinition `json:"definition"`
	RequiredArtifacts []ArtifactRef  `json:"required_artifacts,omitempty"`
}

// WireDefinition carries exactly one of Shell or Script, plus shared env.
type WireDefinition struct {
	EnvVars        map[string]string `json:"env_vars"`
	TimeoutSeconds int64             `json:"timeout_seconds,omitempty"`
	Shell          *WireShell        `json:"shell,omitempty"`
	Script         *WireScript       `json:"script,omitempty"`
}

// WireShell is an ordered list of commands to run under Definition.EnvVars.
type WireShell struct {
	Commands []string `json:"commands"`
}

// WireScript is a script body to run under a configured interpreter.
type WireScript struct {
	ScriptContent string                 `json:"script_content"`
	Parameters    map[string]interface{} `json:"parameters,omitempty"`
}

// CancelSignal asks the worker to abort its running execution.
type CancelSignal struct {
	Reason string `json:"reason"`
}

// ArtifactRef references a build/runtime artifact the worker should fetch.
type ArtifactRef struct {
	ArtifactID string `json:"artifact_id"`
	URI        string `json:"uri,omitempty"`
}
