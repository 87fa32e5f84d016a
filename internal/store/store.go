// Package store provides the persistent job-state repository: a
// key/row per job, with Create/Update/GetByID operations treating the
// store as an opaque repository (spec.md §9 "Persistent job-state
// store").
package store

import (
	"context"
	"sync"

	"github.com/banton/medical-patients-sub005/api"
	"github.com/banton/medical-patients-sub005/pkg/errors"
)

// Repository is the job-state persistence contract the Runner depends
// on. A single-writer-per-job discipline is enforced by the caller
// (spec.md §5 "Shared resources"), not by the Repository itself.
type Repository interface {
	Create(ctx context.Context, state api.JobState) error
	Update(ctx context.Context, state api.JobState) error
	GetByID(ctx context.Context, jobID string) (api.JobState, error)
}

// MemoryRepository is an in-process Repository backed by a guarded map.
// It is the default store; a production deployment would swap in a
// database-backed implementation behind the same interface.
type MemoryRepository struct {
	mu     sync.RWMutex
	states map[string]api.JobState
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{states: make(map[string]api.JobState)}
}

func (r *MemoryRepository) Create(ctx context.Context, state api.JobState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.states[state.JobID]; exists {
		return errors.New(errors.CodeValidation, "job already exists: "+state.JobID)
	}
	r.states[state.JobID] = state
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, state api.JobState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.states[state.JobID]; !exists {
		return errors.New(errors.CodeNotFound, "job not found: "+state.JobID)
	}
	r.states[state.JobID] = state
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, jobID string) (api.JobState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, exists := r.states[jobID]
	if !exists {
		return api.JobState{}, errors.New(errors.CodeNotFound, "job not found: "+jobID)
	}
	return state, nil
}
