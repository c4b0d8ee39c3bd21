package pool

import (
	"context"
	"time"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

// PoolLister is the narrow read surface the RegistryMonitor needs from
// the pool repository.
type PoolLister interface {
	Get(id string) (*domain.ResourcePool, error)
}

// WorkerCounter is the narrow read surface the RegistryMonitor needs
// from the worker registry: how many workers are currently assigned to
// executions for a given pool.
type WorkerCounter interface {
	AssignedCountForPool(poolID string) int
}

// RegistryMonitor derives ResourceUtilization from a pool's declared
// Capacity and the worker registry's live assignment count, rather than
// from a polled external metrics backend — there is no such backend in
// this system, so "total minus assigned" is the utilization signal.
type RegistryMonitor struct {
	pools   PoolLister
	workers WorkerCounter
}

// NewRegistryMonitor constructs a RegistryMonitor.
func NewRegistryMonitor(pools PoolLister, workers WorkerCounter) *RegistryMonitor {
	return &RegistryMonitor{pools: pools, workers: workers}
}

// UtilizationFor implements ResourceMonitor.
func (m *RegistryMonitor) UtilizationFor(ctx context.Context, poolIDs []string) (map[string]domain.ResourceUtilization, error) {
	out := make(map[string]domain.ResourceUtilization, len(poolIDs))
	for _, id := range poolIDs {
		p, err := m.pools.Get(id)
		if err != nil {
			continue
		}
		running := m.workers.AssignedCountForPool(id)
		out[id] = domain.ResourceUtilization{
			PoolID:           id,
			TotalCPU:         ParseCPU(p.Capacity["cpu"]),
			UsedCPU:          0,
			TotalMemoryBytes: ParseMemoryBytes(p.Capacity["memory"]),
			UsedMemoryBytes:  0,
			RunningJobs:      running,
			Timestamp:        time.Now(),
		}
	}
	return out, nil
}
