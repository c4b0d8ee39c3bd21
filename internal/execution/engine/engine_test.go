package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubentxu/hodei-pipelines/internal/channel"
	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/execution/events"
	"github.com/rubentxu/hodei-pipelines/internal/logging"
	"github.com/rubentxu/hodei-pipelines/internal/worker/registry"
)

type fakeFactory struct {
	mu        sync.Mutex
	created   []string
	destroyed []string
}

func (f *fakeFactory) CreateWorker(ctx context.Context, job *domain.Job, pool *domain.ResourcePool) (*domain.WorkerInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "worker-" + job.ID
	f.created = append(f.created, id)
	return &domain.WorkerInstance{ID: id, PoolID: pool.ID, PoolType: pool.Type, Phase: domain.WorkerCreated, CreatedAt: time.Now()}, nil
}

func (f *fakeFactory) DestroyWorker(ctx context.Context, workerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, workerID)
	return nil
}

func (f *fakeFactory) SupportsPoolType(poolType string) bool { return true }

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newFakeJobs() *fakeJobs { return &fakeJobs{jobs: make(map[string]*domain.Job)} }

func (f *fakeJobs) put(j *domain.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = j
}

func (f *fakeJobs) Get(id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id], nil
}

func (f *fakeJobs) UpdateStatus(id string, fn func(*domain.Job)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return assert.AnError
	}
	fn(j)
	return nil
}

type fakeTemplates struct{}

func (fakeTemplates) Validate(id string) (*domain.Template, error) { return nil, nil }

type fakeComms struct {
	mu          sync.Mutex
	assignments []channel.ExecutionAssignment
	cancels     []string
}

func (c *fakeComms) SendExecutionAssignment(workerID string, assignment channel.ExecutionAssignment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assignments = append(c.assignments, assignment)
	return true
}
func (c *fakeComms) SendCancelSignal(workerID string, signal channel.CancelSignal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels = append(c.cancels, workerID)
	return true
}
func (c *fakeComms) SendArtifact(workerID string, artifact channel.ArtifactRef) bool { return true }
func (c *fakeComms) IsWorkerConnected(workerID string) bool                          { return true }
func (c *fakeComms) ConnectedWorkers() []string                                      { return nil }

func testLogger() *logging.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ErrorLevel
	return logging.New(cfg)
}

func newTestEngine() (*Engine, *fakeFactory, *fakeJobs, *fakeComms, *registry.Registry) {
	wf := &fakeFactory{}
	jobs := newFakeJobs()
	reg := registry.New(wf)
	bus := events.New(testLogger())
	eng := New(jobs, fakeTemplates{}, reg, wf, bus, testLogger())
	comms := &fakeComms{}
	eng.SetComms(comms)
	return eng, wf, jobs, comms, reg
}

func TestStartExecutionRejectsWrongToken(t *testing.T) {
	eng, _, jobs, _, _ := newTestEngine()
	job := &domain.Job{ID: "j1", Name: "test", Status: domain.JobQueued, Parameters: map[string]interface{}{}}
	jobs.put(job)
	pool := &domain.ResourcePool{ID: "p1", Type: "docker"}

	_, err := eng.StartExecution(context.Background(), job, pool, "wrong-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestStartExecutionFullHappyPath(t *testing.T) {
	eng, _, jobs, comms, reg := newTestEngine()
	job := &domain.Job{ID: "j2", Name: "build", Status: domain.JobQueued, Parameters: map[string]interface{}{"command": "echo hi"}}
	jobs.put(job)
	pool := &domain.ResourcePool{ID: "p1", Type: "docker"}

	workerID := "worker-j2"
	go func() {
		time.Sleep(10 * time.Millisecond)
		reg.RegisterWorker(workerID)
	}()

	exec, err := eng.StartExecution(context.Background(), job, pool, eng.Token())
	require.NoError(t, err)
	assert.Equal(t, workerID, exec.WorkerID)
	assert.Equal(t, domain.ExecutionRunning, exec.Status)

	comms.mu.Lock()
	assert.Len(t, comms.assignments, 1)
	assert.Equal(t, exec.ID, comms.assignments[0].ExecutionID)
	comms.mu.Unlock()

	active := eng.ActiveExecutions()
	assert.Len(t, active, 1)
}

func TestHandleExecutionResultFinalizesJobAndCleansUp(t *testing.T) {
	eng, wf, jobs, _, reg := newTestEngine()
	job := &domain.Job{ID: "j3", Name: "build", Status: domain.JobQueued, Parameters: map[string]interface{}{}}
	jobs.put(job)
	pool := &domain.ResourcePool{ID: "p1", Type: "docker"}

	workerID := "worker-j3"
	go func() {
		time.Sleep(10 * time.Millisecond)
		reg.RegisterWorker(workerID)
	}()
	exec, err := eng.StartExecution(context.Background(), job, pool, eng.Token())
	require.NoError(t, err)

	err = eng.HandleExecutionResult(exec.ID, channel.ExecutionResult{Success: true, ExitCode: 0})
	require.NoError(t, err)

	updated, err := jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, updated.Status)

	_, _, _, ok := eng.ExecutionContext(exec.ID)
	assert.False(t, ok, "execution context must be removed after terminal result")

	time.Sleep(10 * time.Millisecond)
	wf.mu.Lock()
	assert.Contains(t, wf.destroyed, workerID)
	wf.mu.Unlock()
}

func TestHandleExecutionResultIsIdempotentOnUnknownExecution(t *testing.T) {
	eng, _, _, _, _ := newTestEngine()
	err := eng.HandleExecutionResult("no-such-execution", channel.ExecutionResult{Success: true})
	assert.NoError(t, err)
}
