package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

func candidate(id string, u domain.ResourceUtilization) *domain.PoolCandidate {
	return &domain.PoolCandidate{
		Pool:        &domain.ResourcePool{ID: id, Name: id},
		Utilization: u,
	}
}

func TestRoundRobinFairness(t *testing.T) {
	// ids [a,b,c] sorted, 7 calls -> a,b,c,a,b,c,a.
	candidates := []*domain.PoolCandidate{
		candidate("c", domain.ResourceUtilization{}),
		candidate("a", domain.ResourceUtilization{}),
		candidate("b", domain.ResourceUtilization{}),
	}

	rr := NewRoundRobin()
	job := &domain.Job{}
	want := []string{"a", "b", "c", "a", "b", "c", "a"}
	for i, w := range want {
		got, err := rr.SelectPool(job, candidates)
		require.NoError(t, err)
		require.Equalf(t, w, got.ID, "call %d", i+1)
	}
}

func TestRoundRobinEmptyIsError(t *testing.T) {
	rr := NewRoundRobin()
	_, err := rr.SelectPool(&domain.Job{}, nil)
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestGreedyBestFitPicksMinimum(t *testing.T) {
	candidates := []*domain.PoolCandidate{
		candidate("busy", domain.ResourceUtilization{TotalCPU: 4, UsedCPU: 3, TotalMemoryBytes: 4 << 30, UsedMemoryBytes: 3 << 30}),
		candidate("idle", domain.ResourceUtilization{TotalCPU: 4, UsedCPU: 1, TotalMemoryBytes: 4 << 30, UsedMemoryBytes: 1 << 30}),
	}
	g := NewGreedyBestFit()
	got, err := g.SelectPool(&domain.Job{}, candidates)
	require.NoError(t, err)
	require.Equal(t, "idle", got.ID)
}

func TestLeastLoadedDeterministic(t *testing.T) {
	candidates := []*domain.PoolCandidate{
		candidate("a", domain.ResourceUtilization{TotalCPU: 4, UsedCPU: 1, TotalMemoryBytes: 4 << 30, UsedMemoryBytes: 1 << 30, RunningJobs: 1, QueuedJobs: 0}),
		candidate("b", domain.ResourceUtilization{TotalCPU: 4, UsedCPU: 3, TotalMemoryBytes: 4 << 30, UsedMemoryBytes: 3 << 30, RunningJobs: 5, QueuedJobs: 3}),
	}
	ll := NewLeastLoaded()
	job := &domain.Job{Resources: map[string]string{"cpu": "1", "memory": "1Gi"}}

	got1, err := ll.SelectPool(job, candidates)
	require.NoError(t, err)
	got2, err := ll.SelectPool(job, candidates)
	require.NoError(t, err)
	require.Equal(t, got1.ID, got2.ID, "deterministic for identical inputs")
	require.Equal(t, "a", got1.ID, "less loaded pool wins")
}

func TestBinPackingFirstFitPreference(t *testing.T) {
	// avgUtil = [0.05, 0.35, 0.75, 0.95] ->
	// scores [0.025, 0.35, 0.60, 0.475]; expect the 0.35 candidate wins.
	candidates := []*domain.PoolCandidate{
		candidate("p1", domain.ResourceUtilization{TotalCPU: 1, UsedCPU: 0.05, TotalMemoryBytes: 100, UsedMemoryBytes: 5}),
		candidate("p2", domain.ResourceUtilization{TotalCPU: 1, UsedCPU: 0.35, TotalMemoryBytes: 100, UsedMemoryBytes: 35}),
		candidate("p3", domain.ResourceUtilization{TotalCPU: 1, UsedCPU: 0.75, TotalMemoryBytes: 100, UsedMemoryBytes: 75}),
		candidate("p4", domain.ResourceUtilization{TotalCPU: 1, UsedCPU: 0.95, TotalMemoryBytes: 100, UsedMemoryBytes: 95}),
	}

	b := NewBinPackingFirstFit()
	got, err := b.SelectPool(&domain.Job{}, candidates)
	require.NoError(t, err)
	require.Equal(t, "p2", got.ID)
}
