// Package docker implements a factory.WorkerFactory that provisions
// ephemeral worker containers via the Docker Engine API, grounded on the
// teacher's use of github.com/docker/docker as a transitive dependency
// (brought in through testcontainers) — promoted here to a direct,
// first-class backend the way aws-karpenter-provider-aws and
// nathangeology-karpenter-core each ground node provisioning on a cloud
// SDK client.
package docker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/google/uuid"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/logging"
	"github.com/rubentxu/hodei-pipelines/internal/worker/factory"
)

// Factory provisions worker containers for pools of type "docker".
type Factory struct {
	cli        *client.Client
	image      string
	channelURL string
	log        *logging.Logger
	mu         sync.Mutex
	byID       map[string]string // worker id -> container id
}

// New constructs a Factory using the given image for worker containers.
// channelURL is the orchestrator's websocket endpoint (e.g.
// "ws://hodei-server:8080/ws"), passed to every container so its worker
// runtime knows where to dial back.
func New(cli *client.Client, image, channelURL string, log *logging.Logger) *Factory {
	return &Factory{
		cli:        cli,
		image:      image,
		channelURL: channelURL,
		log:        log.WithComponent("docker-worker-factory"),
		byID:       make(map[string]string),
	}
}

func (f *Factory) SupportsPoolType(poolType string) bool { return poolType == "docker" }

// CreateWorker starts a detached container running the worker runtime
// binary, configured to dial the orchestrator's channel endpoint and
// register under a freshly generated worker id.
func (f *Factory) CreateWorker(ctx context.Context, job *domain.Job, pool *domain.ResourcePool) (*domain.WorkerInstance, error) {
	workerID := uuid.NewString()

	resp, err := f.cli.ContainerCreate(ctx, &container.Config{
		Image: f.image,
		Env: []string{
			"WORKER_ID=" + workerID,
			"POOL_ID=" + pool.ID,
			"HODEI_CHANNEL_URL=" + f.channelURL,
		},
	}, nil, nil, nil, "hodei-worker-"+workerID)
	if err != nil {
		return nil, factory.NewCreationError(err, pool.ID)
	}

	if err := f.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, factory.NewCreationError(err, pool.ID)
	}

	f.mu.Lock()
	f.byID[workerID] = resp.ID
	f.mu.Unlock()

	f.log.WithField("worker_id", workerID).WithField("container_id", resp.ID).Info("worker container started")

	return &domain.WorkerInstance{
		ID:        workerID,
		PoolID:    pool.ID,
		PoolType:  "docker",
		Phase:     domain.WorkerCreated,
		Metadata:  map[string]string{"container_id": resp.ID},
		CreatedAt: time.Now(),
	}, nil
}

// DestroyWorker stops and removes the container. Idempotent: an unknown
// worker id is treated as already destroyed.
func (f *Factory) DestroyWorker(ctx context.Context, workerID string) error {
	f.mu.Lock()
	containerID, ok := f.byID[workerID]
	if ok {
		delete(f.byID, workerID)
	}
	f.mu.Unlock()

	if !ok {
		return nil
	}

	timeout := 10
	if err := f.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		f.log.WithField("worker_id", workerID).Warn(fmt.Sprintf("stop failed: %v", err))
	}
	if err := f.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return factory.NewDeletionError(err, workerID)
	}
	return nil
}
