package repository

import (
	"sync"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/orcherr"
)

// TemplateRepository stores Templates in memory, keyed by id.
type TemplateRepository struct {
	mu        sync.RWMutex
	templates map[string]*domain.Template
}

// NewTemplateRepository constructs an empty TemplateRepository.
func NewTemplateRepository() *TemplateRepository {
	return &TemplateRepository{templates: make(map[string]*domain.Template)}
}

// Save inserts or overwrites a template.
func (r *TemplateRepository) Save(tmpl *domain.Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[tmpl.ID] = tmpl
}

// Get returns the template by id.
func (r *TemplateRepository) Get(id string) (*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, orcherr.New(orcherr.UnknownTarget, "template not found: "+id)
	}
	return t, nil
}

// List returns a snapshot of every stored template.
func (r *TemplateRepository) List() []*domain.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	return out
}
