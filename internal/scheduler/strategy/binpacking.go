package strategy

import (
	"sort"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

// BinPackingFirstFit scores candidates on a piecewise preference curve
// over mean utilization, favoring pools that are already moderately
// packed (to consolidate load) over nearly-empty or nearly-full ones,
// and picks the first (highest-scoring) candidate.
type BinPackingFirstFit struct{}

// NewBinPackingFirstFit constructs a BinPackingFirstFit strategy.
func NewBinPackingFirstFit() *BinPackingFirstFit { return &BinPackingFirstFit{} }

func (s *BinPackingFirstFit) Name() string { return "bin-packing-first-fit" }

func (s *BinPackingFirstFit) SelectPool(job *domain.Job, candidates []*domain.PoolCandidate) (*domain.ResourcePool, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	scored := make([]*domain.PoolCandidate, len(candidates))
	for i, c := range candidates {
		cp := *c
		cp.Score = packingScore(c.Utilization)
		scored[i] = &cp
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored[0].Pool, nil
}

func packingScore(u domain.ResourceUtilization) float64 {
	avgUtil := (u.CPUUtilization() + u.MemoryUtilization()) / 2
	switch {
	case avgUtil < 0.1:
		return avgUtil * 0.5
	case avgUtil < 0.7:
		return avgUtil
	case avgUtil < 0.9:
		return avgUtil * 0.8
	default:
		return avgUtil * 0.5
	}
}
