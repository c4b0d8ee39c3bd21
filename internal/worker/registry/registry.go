// Package registry implements C3's Registry half: tracking worker
// registration, assignment, and release, independent of how the worker
// was provisioned. Grounded on the teacher's storage BackendRegistry
// (pkg/storage/registry.go) generalized from named storage backends to
// dynamically-registering worker ids, and on its health-driven selection
// (FindAvailableWorker mirrors SelectHealthyBackends).
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/worker/factory"
)

// entry is the registry's private bookkeeping for one worker id.
type entry struct {
	info      domain.WorkerInstance
	waiters   []chan struct{}
	destroyed bool
}

// Registry tracks worker registration/assignment/release. It holds no
// knowledge of transport or provisioning — those are the Worker Channel
// (C4) and WorkerFactory (C3's other half), respectively.
type Registry struct {
	mu      sync.Mutex
	workers map[string]*entry
	factory factory.WorkerFactory
}

// New constructs a Registry holding the given factory. The Registry never
// calls it; destroying a worker on registration timeout or failed
// assignment is done by the Execution Engine.
func New(f factory.WorkerFactory) *Registry {
	return &Registry{
		workers: make(map[string]*entry),
		factory: f,
	}
}

// Track records a freshly created (not yet registered) worker instance
// so WaitForWorkerRegistration has something to wait on.
func (r *Registry) Track(w domain.WorkerInstance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[w.ID] = &entry{info: w}
}

// RegisterWorker marks a worker as connected, waking any waiter.
func (r *Registry) RegisterWorker(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.workers[id]
	if !ok {
		e = &entry{info: domain.WorkerInstance{ID: id, CreatedAt: time.Now()}}
		r.workers[id] = e
	}
	e.info.Phase = domain.WorkerRegistered
	e.info.RegisteredAt = time.Now()
	for _, w := range e.waiters {
		close(w)
	}
	e.waiters = nil
}

// WaitForWorkerRegistration blocks until the worker registers or the
// timeout elapses. Returns nil on timeout.
func (r *Registry) WaitForWorkerRegistration(ctx context.Context, id string, timeout time.Duration) *domain.WorkerInstance {
	r.mu.Lock()
	e, ok := r.workers[id]
	if !ok {
		e = &entry{info: domain.WorkerInstance{ID: id, CreatedAt: time.Now()}}
		r.workers[id] = e
	}
	if e.info.Phase == domain.WorkerRegistered || e.info.Phase == domain.WorkerAssigned {
		info := e.info
		r.mu.Unlock()
		return &info
	}
	wait := make(chan struct{})
	e.waiters = append(e.waiters, wait)
	r.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-wait:
		r.mu.Lock()
		info := r.workers[id].info
		r.mu.Unlock()
		return &info
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	}
}

// AssignWorkerToExecution binds a registered or released worker to an
// execution id. Returns false if the worker is unknown, destroyed, or in
// any other phase.
func (r *Registry) AssignWorkerToExecution(id, executionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.workers[id]
	if !ok || e.destroyed {
		return false
	}
	if e.info.Phase != domain.WorkerRegistered && e.info.Phase != domain.WorkerReleased {
		return false
	}
	e.info.Phase = domain.WorkerAssigned
	e.info.ExecutionID = executionID
	return true
}

// ReleaseWorker frees a worker so it can (in principle) be reassigned,
// provided the instance is still alive.
func (r *Registry) ReleaseWorker(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.workers[id]
	if !ok || e.destroyed {
		return
	}
	e.info.Phase = domain.WorkerReleased
	e.info.ExecutionID = ""
}

// Unregister marks a worker whose connection ended as destroyed; its entry
// is kept, and later assignment, release, and lookup calls skip it.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.workers[id]; ok {
		e.destroyed = true
	}
}

// FindAvailableWorker returns a released, still-alive worker whose pool
// type matches requirements, or nil if none.
func (r *Registry) FindAvailableWorker(requirements domain.ResourceRequirements) *domain.WorkerInstance {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.workers {
		if e.destroyed || e.info.Phase != domain.WorkerReleased {
			continue
		}
		if requirements.PoolType != "" && e.info.PoolType != requirements.PoolType {
			continue
		}
		info := e.info
		return &info
	}
	return nil
}

// AssignedCountForPool returns how many live workers provisioned from
// poolID are currently bound to an execution.
func (r *Registry) AssignedCountForPool(poolID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.workers {
		if !e.destroyed && e.info.Phase == domain.WorkerAssigned && e.info.PoolID == poolID {
			n++
		}
	}
	return n
}

// Get returns the current known state of a worker, if any.
func (r *Registry) Get(id string) (domain.WorkerInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.workers[id]
	if !ok {
		return domain.WorkerInstance{}, false
	}
	return e.info, true
}
