package repository

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

func TestJobRepositorySaveAndGetRoundTrips(t *testing.T) {
	repo := NewJobRepository()
	job := &domain.Job{ID: "job-1", Name: "build", Status: domain.JobQueued, CreatedAt: time.Unix(0, 0)}
	repo.Save(job)

	got, err := repo.Get("job-1")
	require.NoError(t, err)
	if diff := cmp.Diff(job, got); diff != "" {
		t.Fatalf("stored job differs from saved job (-want +got):\n%s", diff)
	}
}

func TestJobRepositoryGetUnknownReturnsError(t *testing.T) {
	repo := NewJobRepository()
	_, err := repo.Get("missing")
	assert.Error(t, err)
}

func TestJobRepositoryUpdateStatusAppliesUnderLock(t *testing.T) {
	repo := NewJobRepository()
	job := &domain.Job{ID: "job-1", Status: domain.JobQueued}
	repo.Save(job)

	err := repo.UpdateStatus("job-1", func(j *domain.Job) { j.Complete() })
	require.NoError(t, err)

	got, err := repo.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, got.Status)
}

func TestJobRepositoryUpdateStatusUnknownJobIsError(t *testing.T) {
	repo := NewJobRepository()
	err := repo.UpdateStatus("missing", func(j *domain.Job) {})
	assert.Error(t, err)
}

func TestJobRepositoryListReturnsSnapshot(t *testing.T) {
	repo := NewJobRepository()
	repo.Save(&domain.Job{ID: "a"})
	repo.Save(&domain.Job{ID: "b"})
	assert.Len(t, repo.List(), 2)
}
