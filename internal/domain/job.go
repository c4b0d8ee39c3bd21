// Package domain holds the core data model shared by the scheduler, the
// worker channel, and the execution engine: jobs, pools, workers,
// executions, and the events/logs they emit.
package domain

import "time"

// JobStatus is the lifecycle status of a Job.
type JobStatus string

const (
	JobQueued    JobStatus = "QUEUED"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
)

// IsTerminal reports whether the status is a sink state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// Job is a unit of work submitted to the orchestrator.
type Job struct {
	ID           string
	Name         string
	Status       JobStatus
	TemplateID   string
	TemplateVer  string
	Parameters   map[string]interface{}
	Resources    map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    string
	FailureCause string
}

// Complete marks the job COMPLETED. No-op if already terminal.
func (j *Job) Complete() {
	if j.Status.IsTerminal() {
		return
	}
	j.Status = JobCompleted
	j.UpdatedAt = time.Now()
}

// Fail marks the job FAILED with the given detail. No-op if already terminal.
func (j *Job) Fail(details string) {
	if j.Status.IsTerminal() {
		return
	}
	j.Status = JobFailed
	j.FailureCause = details
	j.UpdatedAt = time.Now()
}

// Cancel marks the job CANCELLED. No-op if already terminal.
func (j *Job) Cancel() {
	if j.Status.IsTerminal() {
		return
	}
	j.Status = JobCancelled
	j.UpdatedAt = time.Now()
}

// SetStatus applies status unconditionally unless the job is already
// terminal, in which case it is a no-op: terminal states are sinks.
func (j *Job) SetStatus(status JobStatus) {
	if j.Status.IsTerminal() {
		return
	}
	if j.Status == status {
		return
	}
	j.Status = status
	j.UpdatedAt = time.Now()
}
