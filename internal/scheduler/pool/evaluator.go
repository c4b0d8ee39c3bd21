// Package pool implements the Pool Candidate Evaluator (C1): turning a
// job's resource requirements and a set of pools into the list of
// PoolCandidate that can actually host it, grounded on the teacher's
// defaultBackendSelector.getEligibleBackends filtering pipeline
// (backend_selector.go), generalized from storage backends to compute
// pools and from capability/health filters to a CPU/memory/concurrency
// capacity predicate.
package pool

import (
	"context"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

// ResourceMonitor produces current utilization snapshots for pools. The
// evaluator is a stateless consumer of this collaborator.
type ResourceMonitor interface {
	UtilizationFor(ctx context.Context, poolIDs []string) (map[string]domain.ResourceUtilization, error)
}

// Evaluator computes PoolCandidate lists. It holds no state of its own.
type Evaluator struct {
	monitor ResourceMonitor
}

// NewEvaluator constructs an Evaluator backed by monitor.
func NewEvaluator(monitor ResourceMonitor) *Evaluator {
	return &Evaluator{monitor: monitor}
}

// Evaluate returns the PoolCandidates whose pools can host job, given the
// live utilization pulled from the ResourceMonitor. The capacity
// predicate is: requested cpu <= totalCpu-usedCpu, requested memory <=
// totalMemory-usedMemory, and runningJobs < maxJobs when maxJobs is set.
func (e *Evaluator) Evaluate(ctx context.Context, job *domain.Job, pools []*domain.ResourcePool) ([]*domain.PoolCandidate, error) {
	ids := make([]string, len(pools))
	for i, p := range pools {
		ids[i] = p.ID
	}

	utilByID, err := e.monitor.UtilizationFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	reqCPU := ParseCPU(job.Resources["cpu"])
	reqMem := ParseMemoryBytes(job.Resources["memory"])

	var candidates []*domain.PoolCandidate
	for _, p := range pools {
		util, ok := utilByID[p.ID]
		if !ok {
			continue
		}
		if !fits(p, util, reqCPU, reqMem) {
			continue
		}
		candidates = append(candidates, &domain.PoolCandidate{
			Pool:        p,
			Utilization: util,
		})
	}

	return candidates, nil
}

func fits(p *domain.ResourcePool, util domain.ResourceUtilization, reqCPU float64, reqMem int64) bool {
	if reqCPU > util.AvailableCPU() {
		return false
	}
	if reqMem > util.AvailableMemoryBytes() {
		return false
	}
	if p.MaxConcurrency != nil && util.RunningJobs >= *p.MaxConcurrency {
		return false
	}
	return true
}
