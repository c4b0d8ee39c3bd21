package strategy

import (
	"sort"
	"sync/atomic"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

// RoundRobin picks candidates in rotation, sorted by pool id ascending.
// The counter is per-instance and safe under concurrent scheduling
// across goroutines.
type RoundRobin struct {
	counter uint64
}

// NewRoundRobin constructs a RoundRobin strategy with a fresh counter.
func NewRoundRobin() *RoundRobin { return &RoundRobin{} }

func (s *RoundRobin) Name() string { return "round-robin" }

func (s *RoundRobin) SelectPool(job *domain.Job, candidates []*domain.PoolCandidate) (*domain.ResourcePool, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	sorted := make([]*domain.PoolCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Pool.ID < sorted[j].Pool.ID
	})

	n := uint64(len(sorted))
	idx := atomic.AddUint64(&s.counter, 1) - 1
	return sorted[idx%n].Pool, nil
}
