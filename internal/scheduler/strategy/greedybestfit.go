package strategy

import (
	"sort"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

// GreedyBestFit scores each candidate by mean utilization and picks the
// least-used pool that still fits the job.
type GreedyBestFit struct{}

// NewGreedyBestFit constructs a GreedyBestFit strategy.
func NewGreedyBestFit() *GreedyBestFit { return &GreedyBestFit{} }

func (s *GreedyBestFit) Name() string { return "greedy-best-fit" }

func (s *GreedyBestFit) SelectPool(job *domain.Job, candidates []*domain.PoolCandidate) (*domain.ResourcePool, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	scored := make([]*domain.PoolCandidate, len(candidates))
	for i, c := range candidates {
		cp := *c
		cp.Score = greedyScore(c.Utilization)
		scored[i] = &cp
	}

	// Stable sort ascending keeps ties at their original relative order,
	// then the minimum is the winner (least used that still fits).
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})

	return scored[0].Pool, nil
}

func greedyScore(u domain.ResourceUtilization) float64 {
	cpuUtil := safeRatio(u.UsedCPU, u.TotalCPU)
	memUtil := safeRatio(float64(u.UsedMemoryBytes), float64(u.TotalMemoryBytes))
	return (cpuUtil + memUtil) / 2
}

func safeRatio(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return used / total
}
