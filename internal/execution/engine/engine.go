// Package engine implements the Execution Engine (C6): the orchestrator's
// single entry point for starting, cancelling, and routing inbound
// frames for executions, serialized per execution id and fanned out to
// subscribers via the Event Subscription Bus (C7).
package engine

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rubentxu/hodei-pipelines/internal/channel"
	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/execution/events"
	"github.com/rubentxu/hodei-pipelines/internal/execution/statemachine"
	"github.com/rubentxu/hodei-pipelines/internal/logging"
	"github.com/rubentxu/hodei-pipelines/internal/orcherr"
	"github.com/rubentxu/hodei-pipelines/internal/worker/factory"
	"github.com/rubentxu/hodei-pipelines/internal/worker/registry"
)

const (
	registrationTimeout   = 30 * time.Second
	cancelLivenessTimeout = 30 * time.Second
)

// WorkerCommunicationService is the narrow outbound capability the
// Engine needs from the Worker Channel (C4). It is injected after
// construction, breaking the Engine<->Channel cycle even though in this
// codebase the cycle is already avoided at the package level: the
// channel package only depends on its own EngineSink interface, never
// on this one.
type WorkerCommunicationService interface {
	SendExecutionAssignment(workerID string, assignment channel.ExecutionAssignment) bool
	SendCancelSignal(workerID string, signal channel.CancelSignal) bool
	SendArtifact(workerID string, artifact channel.ArtifactRef) bool
	IsWorkerConnected(workerID string) bool
	ConnectedWorkers() []string
}

// TemplateValidator is the narrow surface StartExecution needs from
// internal/template.
type TemplateValidator interface {
	Validate(templateID string) (*domain.Template, error)
}

// JobStore is the narrow surface the Engine needs from the job repository.
type JobStore interface {
	Get(id string) (*domain.Job, error)
	UpdateStatus(id string, fn func(*domain.Job)) error
}

// executionCtx is the Engine's per-execution mutable state. All mutation
// goes through mu, so cross-execution operations proceed concurrently
// while one execution's own transitions are serialized.
type executionCtx struct {
	mu          sync.Mutex
	execution   *domain.Execution
	sm          *statemachine.StateMachine
	mirrorCh    <-chan statemachine.Transition
	recentLogs  []domain.ExecutionLog
	recentEvent []domain.ExecutionEvent
	livenessTmr *time.Timer
}

// Engine is the Execution Engine (C6).
type Engine struct {
	jobs      JobStore
	templates TemplateValidator
	workers   *registry.Registry
	factory   factory.WorkerFactory
	comms     WorkerCommunicationService
	bus       *events.Bus
	log       *logging.Logger

	token string

	mu                 sync.RWMutex
	executions         map[string]*executionCtx
	workerToExecution  map[string]string
}

// New constructs an Engine and its process-scoped orchestrator token,
// generated once at construction from a cryptographic random source.
// comms must be wired via SetComms before any execution is started.
func New(jobs JobStore, templates TemplateValidator, workers *registry.Registry, wf factory.WorkerFactory, bus *events.Bus, log *logging.Logger) *Engine {
	return &Engine{
		jobs:              jobs,
		templates:         templates,
		workers:           workers,
		factory:           wf,
		bus:               bus,
		log:               log.WithComponent("execution-engine"),
		token:             generateToken(),
		executions:        make(map[string]*executionCtx),
		workerToExecution: make(map[string]string),
	}
}

func generateToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("engine: failed to read crypto/rand: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Token exposes the orchestrator token to the layer that owns submission
// (REST façade, CLI bootstrap) — never to the wire protocol.
func (e *Engine) Token() string { return e.token }

// SetComms wires the outbound transport after construction.
func (e *Engine) SetComms(comms WorkerCommunicationService) { e.comms = comms }

// StartExecution validates the template, provisions a worker, waits for
// it to register, records the execution, assigns it to the worker, and
// dispatches the assignment over the channel.
func (e *Engine) StartExecution(ctx context.Context, job *domain.Job, pool *domain.ResourcePool, orchestratorToken string) (*domain.Execution, error) {
	if orchestratorToken != e.token {
		return nil, orcherr.New(orcherr.Authorization, orcherr.Unauthorized)
	}

	var tmpl *domain.Template
	if job.TemplateID != "" {
		t, err := e.templates.Validate(job.TemplateID)
		if err != nil {
			return nil, err
		}
		tmpl = t
	}

	worker, err := e.factory.CreateWorker(ctx, job, pool)
	if err != nil {
		return nil, err
	}
	// Track records the pool binding (PoolID/PoolType) before anything
	// waits on registration, so AssignedCountForPool and
	// FindAvailableWorker's pool-type match see the real provisioning
	// pool rather than a bare entry created on first registration.
	e.workers.Track(*worker)
	registered := e.workers.WaitForWorkerRegistration(ctx, worker.ID, registrationTimeout)
	if registered == nil {
		_ = e.factory.DestroyWorker(ctx, worker.ID)
		return nil, orcherr.New(orcherr.Timeout, "Worker failed to register within timeout")
	}

	execution := &domain.Execution{
		ID:         uuid.NewString(),
		JobID:      job.ID,
		WorkerID:   worker.ID,
		Definition: buildDefinition(job, tmpl),
		Status:     domain.ExecutionPending,
		CreatedAt:  time.Now(),
	}

	sm := statemachine.New()
	ec := &executionCtx{execution: execution, sm: sm}
	ec.mirrorCh = sm.Subscribe()
	go e.mirrorJobStatus(job.ID, ec.mirrorCh)

	e.mu.Lock()
	e.executions[execution.ID] = ec
	e.workerToExecution[worker.ID] = execution.ID
	e.mu.Unlock()

	if !e.workers.AssignWorkerToExecution(worker.ID, execution.ID) {
		e.forget(execution.ID, worker.ID)
		_ = e.factory.DestroyWorker(ctx, worker.ID)
		return nil, orcherr.New(orcherr.Provisioning, "failed to assign worker to execution")
	}

	messageID := uuid.NewString()
	assignment := channel.ExecutionAssignment{
		ExecutionID: execution.ID,
		Definition:  toWireDefinition(execution.Definition),
	}
	if e.comms == nil || !e.comms.SendExecutionAssignment(worker.ID, assignment) {
		e.forget(execution.ID, worker.ID)
		_ = e.factory.DestroyWorker(ctx, worker.ID)
		return nil, orcherr.New(orcherr.Transport, "failed to send execution assignment")
	}

	sm.TransitionTo(statemachine.Assigned, messageID, true, nil)
	execution.Status = domain.ExecutionRunning
	execution.StartedAt = time.Now()

	return execution, nil
}

// mirrorJobStatus idempotently mirrors state transitions into the job's
// status. domain.Job.SetStatus already no-ops on a repeated or terminal
// status.
func (e *Engine) mirrorJobStatus(jobID string, ch <-chan statemachine.Transition) {
	for tr := range ch {
		status := tr.State.JobStatus()
		if err := e.jobs.UpdateStatus(jobID, func(j *domain.Job) { j.SetStatus(status) }); err != nil {
			e.log.WithField("job_id", jobID).Warn("status mirror failed: job not found")
		}
	}
}

func (e *Engine) forget(executionID, workerID string) {
	e.mu.Lock()
	delete(e.executions, executionID)
	delete(e.workerToExecution, workerID)
	e.mu.Unlock()
}

// CancelExecution sends a cancel signal; the authoritative CANCELLED
// transition still comes from the worker's subsequent result. A
// liveness timer force-fails the execution if no result arrives in time
// (see DESIGN.md for the timeout-value decision).
func (e *Engine) CancelExecution(executionID, reason string) error {
	e.mu.RLock()
	ec, ok := e.executions[executionID]
	e.mu.RUnlock()
	if !ok {
		return orcherr.New(orcherr.UnknownTarget, "execution not found: "+executionID)
	}

	ec.mu.Lock()
	workerID := ec.execution.WorkerID
	ec.mu.Unlock()

	if e.comms == nil || !e.comms.SendCancelSignal(workerID, channel.CancelSignal{Reason: reason}) {
		return orcherr.New(orcherr.Transport, "failed to send cancel signal")
	}

	ec.mu.Lock()
	if ec.livenessTmr != nil {
		ec.livenessTmr.Stop()
	}
	ec.livenessTmr = time.AfterFunc(cancelLivenessTimeout, func() {
		e.forceFailOnLivenessTimeout(executionID)
	})
	ec.mu.Unlock()

	return nil
}

func (e *Engine) forceFailOnLivenessTimeout(executionID string) {
	e.mu.RLock()
	ec, ok := e.executions[executionID]
	e.mu.RUnlock()
	if !ok {
		return
	}
	if !ec.sm.TransitionTo(statemachine.Failed, "", false, map[string]interface{}{"reason": "no completion from worker"}) {
		return
	}

	ec.mu.Lock()
	ec.execution.Status = domain.ExecutionFailed
	ec.execution.FailureMsg = "no completion from worker"
	ec.execution.EndedAt = time.Now()
	jobID := ec.execution.JobID
	workerID := ec.execution.WorkerID
	ec.mu.Unlock()

	if err := e.jobs.UpdateStatus(jobID, func(j *domain.Job) { j.Fail("no completion from worker") }); err != nil {
		e.log.WithField("job_id", jobID).Warn("terminal job write failed: job not found")
	}
	e.workers.ReleaseWorker(workerID)
	go e.factory.DestroyWorker(context.Background(), workerID)

	e.bus.CleanupExecution(executionID)
	e.forget(executionID, workerID)
}

// ActiveExecutionForWorker implements channel.EngineSink.
func (e *Engine) ActiveExecutionForWorker(workerID string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.workerToExecution[workerID]
	return id, ok
}

// HandleStatusUpdate implements channel.EngineSink.
func (e *Engine) HandleStatusUpdate(executionID string, update channel.StatusUpdate) {
	e.mu.RLock()
	ec, ok := e.executions[executionID]
	e.mu.RUnlock()
	if !ok {
		return
	}

	if update.EventType == channel.WireStageStarted || update.EventType == channel.WireStepStarted {
		if ec.sm.Current() == statemachine.Assigned {
			ec.sm.TransitionTo(statemachine.Started, "", false, nil)
		}
	}

	ev := domain.ExecutionEvent{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		Timestamp:   time.Now(),
		Type:        mapEventType(update.EventType),
		Message:     update.Message,
	}

	ec.mu.Lock()
	ec.recentEvent = appendBounded(ec.recentEvent, ev, 500)
	ec.mu.Unlock()

	e.bus.NotifyEvent(executionID, ev)
}

func mapEventType(t channel.WireEventType) domain.EventType {
	switch t {
	case channel.WireStageStarted:
		return domain.EventStageStarted
	case channel.WireStageCompleted:
		return domain.EventStageCompleted
	case channel.WireStepStarted:
		return domain.EventStepStarted
	case channel.WireStepCompleted:
		return domain.EventStepCompleted
	default:
		return domain.EventStatusUpdate
	}
}

// HandleLogChunk implements channel.EngineSink.
func (e *Engine) HandleLogChunk(executionID string, chunk channel.LogChunk) {
	e.mu.RLock()
	ec, ok := e.executions[executionID]
	e.mu.RUnlock()
	if !ok {
		return
	}

	stream := domain.StreamStdout
	if chunk.Stream == channel.WireStderr {
		stream = domain.StreamStderr
	}
	log := domain.ExecutionLog{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		Timestamp:   time.Now(),
		Level:       domain.LogLevelInfo,
		Stream:      stream,
		Message:     chunk.Content,
	}

	ec.mu.Lock()
	ec.recentLogs = appendBoundedLogs(ec.recentLogs, log, 1000)
	ec.mu.Unlock()

	e.bus.NotifyLog(executionID, log)
}

func appendBounded(s []domain.ExecutionEvent, item domain.ExecutionEvent, max int) []domain.ExecutionEvent {
	s = append(s, item)
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

func appendBoundedLogs(s []domain.ExecutionLog, item domain.ExecutionLog, max int) []domain.ExecutionLog {
	s = append(s, item)
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

// HandleExecutionResult implements channel.EngineSink. It is the
// critical-path handler for the retried execution_result frame.
func (e *Engine) HandleExecutionResult(executionID string, result channel.ExecutionResult) error {
	e.mu.RLock()
	ec, ok := e.executions[executionID]
	e.mu.RUnlock()
	if !ok {
		// already finalized (e.g. the liveness timeout raced this
		// delivery); nothing left to do, and this must not be retried.
		return nil
	}

	target := statemachine.Completed
	if !result.Success {
		target = statemachine.Failed
	}

	ec.mu.Lock()
	if ec.livenessTmr != nil {
		ec.livenessTmr.Stop()
	}
	transitioned := ec.sm.TransitionTo(target, "", false, nil)
	if transitioned {
		exitCode := int(result.ExitCode)
		ec.execution.ExitCode = &exitCode
		ec.execution.EndedAt = time.Now()
		if result.Success {
			ec.execution.Status = domain.ExecutionSuccess
		} else {
			ec.execution.Status = domain.ExecutionFailed
			ec.execution.FailureMsg = result.Details
		}
	}
	jobID := ec.execution.JobID
	workerID := ec.execution.WorkerID
	ec.mu.Unlock()

	if !transitioned {
		e.log.WithField("execution_id", executionID).Warn("ignoring execution_result: state machine already terminal")
		return nil
	}

	// Direct terminal job write is authoritative; the reactive mirror from
	// the same transition is best-effort and races harmlessly since
	// Job.SetStatus/Complete/Fail are idempotent sinks.
	if err := e.jobs.UpdateStatus(jobID, func(j *domain.Job) {
		if result.Success {
			j.Complete()
		} else {
			j.Fail(result.Details)
		}
	}); err != nil {
		e.log.WithField("job_id", jobID).Warn("terminal job write failed: job not found")
	}

	e.workers.ReleaseWorker(workerID)
	go func() {
		if err := e.factory.DestroyWorker(context.Background(), workerID); err != nil {
			e.log.WithField("worker_id", workerID).Warn("async worker destroy failed")
		}
	}()

	e.bus.CleanupExecution(executionID)
	ec.sm.Unsubscribe(ec.mirrorCh)
	e.forget(executionID, workerID)

	return nil
}

// ActiveExecutions returns a snapshot of every execution still tracked.
func (e *Engine) ActiveExecutions() []domain.Execution {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.Execution, 0, len(e.executions))
	for _, ec := range e.executions {
		ec.mu.Lock()
		out = append(out, *ec.execution)
		ec.mu.Unlock()
	}
	return out
}

// ExecutionContext returns the current execution snapshot plus its
// recent events/logs, for observational queries (REST/CLI).
func (e *Engine) ExecutionContext(id string) (domain.Execution, []domain.ExecutionEvent, []domain.ExecutionLog, bool) {
	e.mu.RLock()
	ec, ok := e.executions[id]
	e.mu.RUnlock()
	if !ok {
		return domain.Execution{}, nil, nil, false
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return *ec.execution, append([]domain.ExecutionEvent(nil), ec.recentEvent...), append([]domain.ExecutionLog(nil), ec.recentLogs...), true
}

// Subscribe registers sink for fan-out delivery on sub's execution id,
// returning the subscription id.
func (e *Engine) Subscribe(sub domain.Subscription, sink events.Sink) string {
	return e.bus.Subscribe(sub, sink)
}

// Unsubscribe removes a previously registered subscription.
func (e *Engine) Unsubscribe(id string) { e.bus.Unsubscribe(id) }
