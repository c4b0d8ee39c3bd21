// Package template validates pipeline templates before the Execution
// Engine will build an execution from them.
package template

import (
	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/orcherr"
)

// Repository is the narrow read surface the Validator needs.
type Repository interface {
	Get(id string) (*domain.Template, error)
}

// Validator enforces that a referenced template exists and is PUBLISHED.
type Validator struct {
	repo Repository
}

// New constructs a Validator over repo.
func New(repo Repository) *Validator {
	return &Validator{repo: repo}
}

// Validate fetches templateID and requires it to be PUBLISHED. Returns a
// *orcherr.Error of kind Validation on any failure.
func (v *Validator) Validate(templateID string) (*domain.Template, error) {
	tmpl, err := v.repo.Get(templateID)
	if err != nil {
		return nil, orcherr.Wrap(orcherr.Validation, "template not found", err).
			WithMetadata("template_id", templateID)
	}
	if tmpl.State != domain.TemplatePublished {
		return nil, orcherr.New(orcherr.Validation, "template is not published").
			WithMetadata("template_id", templateID).
			WithMetadata("state", string(tmpl.State))
	}
	return tmpl, nil
}
