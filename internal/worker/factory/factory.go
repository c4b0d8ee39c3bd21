// Package factory defines the WorkerFactory contract (C3) — provisioning
// and destroying worker instances on a pool's backend — generalized from
// the teacher's storage Backend lifecycle (backend_lifecycle.go,
// backend_registry.go): SupportsPoolType mirrors Backend capability
// checks, CreateWorker/DestroyWorker mirror backend connect/disconnect.
package factory

import (
	"context"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/orcherr"
)

// WorkerFactory provisions and tears down workers on one kind of backend.
type WorkerFactory interface {
	// CreateWorker starts a worker process for job on pool and returns
	// immediately with the id the worker will use to register. Returns a
	// *orcherr.Error of kind Provisioning on failure.
	CreateWorker(ctx context.Context, job *domain.Job, pool *domain.ResourcePool) (*domain.WorkerInstance, error)

	// DestroyWorker tears down the worker. Idempotent: destroying an
	// already-destroyed or unknown worker is not an error.
	DestroyWorker(ctx context.Context, workerID string) error

	// SupportsPoolType reports whether this factory can provision on the
	// named pool type ("docker", "kubernetes", ...).
	SupportsPoolType(poolType string) bool
}

// NewCreationError wraps a provisioning failure from CreateWorker.
func NewCreationError(cause error, poolID string) error {
	return orcherr.Wrap(orcherr.Provisioning, "failed to create worker", cause).
		WithMetadata("pool_id", poolID)
}

// NewDeletionError wraps a provisioning failure from DestroyWorker.
func NewDeletionError(cause error, workerID string) error {
	return orcherr.Wrap(orcherr.Provisioning, "failed to destroy worker", cause).
		WithMetadata("worker_id", workerID)
}

// Multiplexer dispatches to the first registered factory that supports a
// pool's type, so the engine can hold one WorkerFactory while backing
// multiple pool types (docker, kubernetes, ...).
type Multiplexer struct {
	factories []WorkerFactory
}

// NewMultiplexer builds a Multiplexer over the given factories, tried in order.
func NewMultiplexer(factories ...WorkerFactory) *Multiplexer {
	return &Multiplexer{factories: factories}
}

func (m *Multiplexer) find(poolType string) (WorkerFactory, bool) {
	for _, f := range m.factories {
		if f.SupportsPoolType(poolType) {
			return f, true
		}
	}
	return nil, false
}

func (m *Multiplexer) CreateWorker(ctx context.Context, job *domain.Job, pool *domain.ResourcePool) (*domain.WorkerInstance, error) {
	f, ok := m.find(pool.Type)
	if !ok {
		return nil, orcherr.New(orcherr.Provisioning, "no worker factory supports pool type "+pool.Type)
	}
	return f.CreateWorker(ctx, job, pool)
}

func (m *Multiplexer) DestroyWorker(ctx context.Context, workerID string) error {
	// Worker id alone doesn't carry pool type; try every factory and
	// treat "not found" as success (idempotent).
	var lastErr error
	for _, f := range m.factories {
		if err := f.DestroyWorker(ctx, workerID); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (m *Multiplexer) SupportsPoolType(poolType string) bool {
	_, ok := m.find(poolType)
	return ok
}
