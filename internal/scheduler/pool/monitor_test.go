package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

type fakePoolLister struct {
	pools map[string]*domain.ResourcePool
}

func (f *fakePoolLister) Get(id string) (*domain.ResourcePool, error) {
	p, ok := f.pools[id]
	if !ok {
		return nil, assertErr
	}
	return p, nil
}

var assertErr = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

type fakeWorkerCounter struct {
	counts map[string]int
}

func (f *fakeWorkerCounter) AssignedCountForPool(poolID string) int { return f.counts[poolID] }

func TestRegistryMonitorDerivesUtilizationFromCapacityAndAssignments(t *testing.T) {
	lister := &fakePoolLister{pools: map[string]*domain.ResourcePool{
		"p1": {ID: "p1", Capacity: map[string]string{"cpu": "4", "memory": "8Gi"}},
	}}
	counter := &fakeWorkerCounter{counts: map[string]int{"p1": 2}}

	mon := NewRegistryMonitor(lister, counter)
	util, err := mon.UtilizationFor(context.Background(), []string{"p1"})
	require.NoError(t, err)

	require.Contains(t, util, "p1")
	assert.Equal(t, 4.0, util["p1"].TotalCPU)
	assert.Equal(t, int64(8<<30), util["p1"].TotalMemoryBytes)
	assert.Equal(t, 2, util["p1"].RunningJobs)
}

func TestRegistryMonitorSkipsUnknownPools(t *testing.T) {
	mon := NewRegistryMonitor(&fakePoolLister{pools: map[string]*domain.ResourcePool{}}, &fakeWorkerCounter{})
	util, err := mon.UtilizationFor(context.Background(), []string{"missing"})
	require.NoError(t, err)
	assert.Empty(t, util)
}
