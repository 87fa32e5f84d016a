package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banton/medical-patients-sub005/api"
)

func TestCreateThenGetByIDRoundTrips(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	state := api.JobState{JobID: "job-1", Status: api.JobPending}
	require.NoError(t, repo.Create(ctx, state))

	got, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, api.JobPending, got.Status)
}

func TestCreateRejectsDuplicateJobID(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, api.JobState{JobID: "job-1"}))
	err := repo.Create(ctx, api.JobState{JobID: "job-1"})
	require.Error(t, err)
}

func TestUpdateRejectsUnknownJobID(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	err := repo.Update(ctx, api.JobState{JobID: "missing"})
	require.Error(t, err)
}

func TestUpdateOverwritesExistingState(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, api.JobState{JobID: "job-1", Status: api.JobPending}))
	require.NoError(t, repo.Update(ctx, api.JobState{JobID: "job-1", Status: api.JobRunning, Progress: 0.5}))

	got, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, api.JobRunning, got.Status)
	require.Equal(t, 0.5, got.Progress)
}

func TestGetByIDUnknownReturnsNotFound(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.GetByID(context.Background(), "nope")
	require.Error(t, err)
}
