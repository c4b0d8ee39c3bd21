package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

type fakeMonitor struct {
	byID map[string]domain.ResourceUtilization
}

func (m *fakeMonitor) UtilizationFor(ctx context.Context, poolIDs []string) (map[string]domain.ResourceUtilization, error) {
	out := make(map[string]domain.ResourceUtilization, len(poolIDs))
	for _, id := range poolIDs {
		if u, ok := m.byID[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func TestEvaluateHappyPath(t *testing.T) {
	// p1 has 4 CPU (1 used), 8Gi memory (2Gi used), 0 running jobs;
	// job requires cpu=1, memory=1Gi.
	p1 := &domain.ResourcePool{ID: "p1", Name: "p1", Type: "docker"}
	monitor := &fakeMonitor{byID: map[string]domain.ResourceUtilization{
		"p1": {
			PoolID:           "p1",
			TotalCPU:         4,
			UsedCPU:          1,
			TotalMemoryBytes: 8 << 30,
			UsedMemoryBytes:  2 << 30,
			RunningJobs:      0,
			Timestamp:        time.Now(),
		},
	}}

	job := &domain.Job{ID: "job1", Resources: map[string]string{"cpu": "1", "memory": "1Gi"}}

	ev := NewEvaluator(monitor)
	candidates, err := ev.Evaluate(context.Background(), job, []*domain.ResourcePool{p1})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "p1", candidates[0].Pool.ID)
}

func TestEvaluateExcludesInsufficientCapacity(t *testing.T) {
	p1 := &domain.ResourcePool{ID: "p1", Name: "p1", Type: "docker"}
	monitor := &fakeMonitor{byID: map[string]domain.ResourceUtilization{
		"p1": {PoolID: "p1", TotalCPU: 2, UsedCPU: 1.9, TotalMemoryBytes: 1 << 30, UsedMemoryBytes: 0},
	}}
	job := &domain.Job{Resources: map[string]string{"cpu": "1"}}

	ev := NewEvaluator(monitor)
	candidates, err := ev.Evaluate(context.Background(), job, []*domain.ResourcePool{p1})
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestEvaluateExcludesFullPool(t *testing.T) {
	max := 1
	p1 := &domain.ResourcePool{ID: "p1", Name: "p1", Type: "docker", MaxConcurrency: &max}
	monitor := &fakeMonitor{byID: map[string]domain.ResourceUtilization{
		"p1": {PoolID: "p1", TotalCPU: 4, TotalMemoryBytes: 4 << 30, RunningJobs: 1},
	}}
	job := &domain.Job{Resources: map[string]string{"cpu": "1"}}

	ev := NewEvaluator(monitor)
	candidates, err := ev.Evaluate(context.Background(), job, []*domain.ResourcePool{p1})
	require.NoError(t, err)
	require.Empty(t, candidates)
}
