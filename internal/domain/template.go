package domain

import "time"

// TemplateState is the publication lifecycle of a pipeline template.
type TemplateState string

const (
	TemplateDraft     TemplateState = "DRAFT"
	TemplatePublished TemplateState = "PUBLISHED"
	TemplateArchived  TemplateState = "ARCHIVED"
)

// Template is a reusable job definition. The Engine only accepts
// PUBLISHED templates when starting an execution.
type Template struct {
	ID        string
	Name      string
	Version   string
	State     TemplateState
	Shell     *ShellTask
	Script    *ScriptTask
	CreatedAt time.Time
	UpdatedAt time.Time
}
