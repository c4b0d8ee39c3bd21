package repository

import (
	"sync"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/orcherr"
)

// PoolRepository stores ResourcePools in memory, keyed by id.
type PoolRepository struct {
	mu    sync.RWMutex
	pools map[string]*domain.ResourcePool
}

// NewPoolRepository constructs an empty PoolRepository.
func NewPoolRepository() *PoolRepository {
	return &PoolRepository{pools: make(map[string]*domain.ResourcePool)}
}

// Save inserts or overwrites a pool.
func (r *PoolRepository) Save(pool *domain.ResourcePool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[pool.ID] = pool
}

// Get returns the pool by id.
func (r *PoolRepository) Get(id string) (*domain.ResourcePool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[id]
	if !ok {
		return nil, orcherr.New(orcherr.UnknownTarget, "pool not found: "+id)
	}
	return p, nil
}

// List returns a snapshot of every stored pool.
func (r *PoolRepository) List() []*domain.ResourcePool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.ResourcePool, 0, len(r.pools))
	for _, p := range r.pools {
		out = append(out, p)
	}
	return out
}
