// Package strategy implements the four pluggable pool-ranking policies
// (C2). Every strategy shares one capability, {SelectPool, Name}, the
// same dynamic-dispatch shape the teacher uses for its storage
// BackendSelector strategies (pkg/storage/backend_selector.go): a single
// interface, multiple interchangeable implementations registered by
// name, no type switch at the call site.
package strategy

import (
	"errors"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

// ErrNoCandidates is returned by every strategy when given an empty list.
var ErrNoCandidates = errors.New("No candidate pools available")

// Strategy ranks candidate pools and picks one for a job.
type Strategy interface {
	SelectPool(job *domain.Job, candidates []*domain.PoolCandidate) (*domain.ResourcePool, error)
	Name() string
}

// Registry holds named strategies so callers can select one by config key.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds a Registry pre-populated with the four built-in
// strategies.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	r.Register(NewRoundRobin())
	r.Register(NewGreedyBestFit())
	r.Register(NewLeastLoaded())
	r.Register(NewBinPackingFirstFit())
	return r
}

// Register adds or replaces a strategy under its own Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get looks up a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}
