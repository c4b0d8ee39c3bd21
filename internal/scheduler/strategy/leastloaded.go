package strategy

import (
	"sort"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/scheduler/pool"
)

// LeastLoaded scores each candidate with a weighted blend of
// availability, capacity, queue depth, and requirement fit, and picks
// the maximum.
type LeastLoaded struct{}

// NewLeastLoaded constructs a LeastLoaded strategy.
func NewLeastLoaded() *LeastLoaded { return &LeastLoaded{} }

func (s *LeastLoaded) Name() string { return "least-loaded" }

func (s *LeastLoaded) SelectPool(job *domain.Job, candidates []*domain.PoolCandidate) (*domain.ResourcePool, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	reqCPU := parseReqCPU(job)
	reqMem := parseReqMem(job)

	scored := make([]*domain.PoolCandidate, len(candidates))
	for i, c := range candidates {
		cp := *c
		cp.Score = leastLoadedScore(c.Pool, c.Utilization, reqCPU, reqMem)
		scored[i] = &cp
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored[0].Pool, nil
}

func leastLoadedScore(p *domain.ResourcePool, u domain.ResourceUtilization, reqCPU float64, reqMem int64) float64 {
	cpuAvailability := 1 - safeRatio(u.UsedCPU, u.TotalCPU)
	memAvailability := 1 - safeRatio(float64(u.UsedMemoryBytes), float64(u.TotalMemoryBytes))

	var jobCapacityScore float64
	if p.MaxConcurrency != nil && *p.MaxConcurrency > 0 {
		jobCapacityScore = 1 - float64(u.RunningJobs)/float64(*p.MaxConcurrency)
	} else {
		jobCapacityScore = 1 / (1 + 0.1*float64(u.RunningJobs))
	}

	queueScore := 1 / (1 + 0.2*float64(u.QueuedJobs))

	cpuFitScore := fitScore(u.AvailableCPU(), reqCPU)
	memFitScore := fitScore(float64(u.AvailableMemoryBytes()), float64(reqMem))

	return 0.25*cpuAvailability +
		0.25*memAvailability +
		0.20*jobCapacityScore +
		0.10*queueScore +
		0.10*cpuFitScore +
		0.10*memFitScore
}

func fitScore(available, required float64) float64 {
	if required <= 0 {
		return 1
	}
	ratio := available / required
	if ratio > 1 {
		return 1
	}
	return ratio
}

func parseReqCPU(job *domain.Job) float64 {
	return pool.ParseCPU(job.Resources["cpu"])
}

func parseReqMem(job *domain.Job) int64 {
	return pool.ParseMemoryBytes(job.Resources["memory"])
}
