// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package pool bounds the number of generation jobs that may run
// concurrently and tracks their lifecycle (spec §5 concurrency cap J).
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/banton/medical-patients-sub005/pkg/logging"
)

// JobPool is a counting semaphore over concurrently running jobs, with
// per-slot usage statistics for observability.
type JobPool struct {
	mu     sync.RWMutex
	slots  map[string]*slot
	sem    chan struct{}
	config *Config
	logger logging.Logger
}

type slot struct {
	jobID     string
	acquired  time.Time
	lastSeen  time.Time
	chunkRuns int64
}

// Config bounds pool capacity.
type Config struct {
	// MaxConcurrentJobs is the hard cap on simultaneously running jobs (J).
	MaxConcurrentJobs int
}

// DefaultConfig mirrors the default concurrency cap from pkg/config.
func DefaultConfig() *Config {
	return &Config{MaxConcurrentJobs: 2}
}

// NewJobPool creates a job pool with the given capacity.
func NewJobPool(config *Config, logger logging.Logger) *JobPool {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxConcurrentJobs <= 0 {
		config.MaxConcurrentJobs = 1
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &JobPool{
		slots:  make(map[string]*slot),
		sem:    make(chan struct{}, config.MaxConcurrentJobs),
		config: config,
		logger: logger,
	}
}

// Acquire blocks until a concurrency slot is free or ctx is cancelled, then
// reserves that slot for jobID. Call Release when the job finishes.
func (p *JobPool) Acquire(ctx context.Context, jobID string) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	now := time.Now()
	p.mu.Lock()
	p.slots[jobID] = &slot{jobID: jobID, acquired: now, lastSeen: now}
	p.mu.Unlock()

	p.logger.Info("acquired job slot", "job_id", jobID)
	return nil
}

// Release frees the concurrency slot held by jobID.
func (p *JobPool) Release(jobID string) {
	p.mu.Lock()
	delete(p.slots, jobID)
	p.mu.Unlock()

	select {
	case <-p.sem:
	default:
	}

	p.logger.Info("released job slot", "job_id", jobID)
}

// TouchChunk records that jobID completed another chunk, for stall detection.
func (p *JobPool) TouchChunk(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.slots[jobID]; ok {
		s.lastSeen = time.Now()
		s.chunkRuns++
	}
}

// Stats reports current pool occupancy.
func (p *JobPool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := Stats{
		Capacity: p.config.MaxConcurrentJobs,
		InUse:    len(p.slots),
		Jobs:     make(map[string]SlotStats, len(p.slots)),
	}
	for jobID, s := range p.slots {
		stats.Jobs[jobID] = SlotStats{
			Acquired:  s.acquired,
			LastSeen:  s.lastSeen,
			ChunkRuns: s.chunkRuns,
		}
	}
	return stats
}

// Stats describes overall pool occupancy.
type Stats struct {
	Capacity int
	InUse    int
	Jobs     map[string]SlotStats
}

// SlotStats describes a single occupied slot.
type SlotStats struct {
	Acquired  time.Time
	LastSeen  time.Time
	ChunkRuns int64
}
