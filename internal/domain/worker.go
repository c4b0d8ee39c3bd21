package domain

import "time"

// WorkerPhase is the lifecycle phase of a WorkerInstance.
type WorkerPhase string

const (
	WorkerCreated    WorkerPhase = "CREATED"
	WorkerRegistered WorkerPhase = "REGISTERED"
	WorkerAssigned   WorkerPhase = "ASSIGNED"
	WorkerReleased   WorkerPhase = "RELEASED"
	WorkerDestroyed  WorkerPhase = "DESTROYED"
)

// WorkerInstance is a provisioned, possibly-not-yet-registered worker.
type WorkerInstance struct {
	ID          string
	PoolID      string
	PoolType    string
	Phase       WorkerPhase
	ExecutionID string // non-empty when ASSIGNED
	Metadata    map[string]string
	CreatedAt   time.Time
	RegisteredAt time.Time
}

// ResourceRequirements describes what a job asks of a worker, used by
// Registry.FindAvailableWorker.
type ResourceRequirements struct {
	CPU      string
	Memory   string
	PoolType string
}
