// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package metrics collects in-process counters and gauges for the job
// pipeline (spec §6 Metrics row).
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the interface every component reports through.
type Collector interface {
	// RecordJobStatus records a job entering a status (pending, running, or terminal).
	RecordJobStatus(status string)

	// RecordPatientsGenerated records patients written in a given output format.
	RecordPatientsGenerated(format string, count int64)

	// RecordChunkDuration records how long a chunk took to materialize and write.
	RecordChunkDuration(d time.Duration)

	// SetMemoryGauge records the most recent resident-memory sample in bytes.
	SetMemoryGauge(bytes int64)

	// RecordCacheHit and RecordCacheMiss track the cache layer's effectiveness.
	RecordCacheHit(key string)
	RecordCacheMiss(key string)

	// Stats returns a snapshot of current metrics.
	Stats() Stats

	// Reset zeroes all counters.
	Reset()
}

// Stats is an aggregated metrics snapshot.
type Stats struct {
	JobsByStatus     map[string]int64
	PatientsByFormat map[string]int64
	ChunkDuration    DurationStats
	MemoryBytes      int64
	CacheHits        int64
	CacheMisses      int64
	CacheHitRatio    float64
	StartTime        time.Time
	Uptime           time.Duration
}

// DurationStats summarizes a stream of duration samples.
type DurationStats struct {
	Count   int64
	Total   time.Duration
	Min     time.Duration
	Max     time.Duration
	Average time.Duration
}

// InMemoryCollector is a process-local metrics collector.
type InMemoryCollector struct {
	mu sync.RWMutex

	jobsByStatus     map[string]*int64
	patientsByFormat map[string]*int64

	chunkAgg *durationAggregator

	memoryBytes int64
	cacheHits   int64
	cacheMisses int64

	startTime time.Time
}

// NewInMemoryCollector creates a new in-memory metrics collector.
func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		jobsByStatus:     make(map[string]*int64),
		patientsByFormat: make(map[string]*int64),
		chunkAgg:         newDurationAggregator(),
		startTime:        time.Now(),
	}
}

func (c *InMemoryCollector) RecordJobStatus(status string) {
	incrementCounter(&c.mu, c.jobsByStatus, status)
}

func (c *InMemoryCollector) RecordPatientsGenerated(format string, count int64) {
	c.mu.Lock()
	counter, exists := c.patientsByFormat[format]
	if !exists {
		var v int64
		counter = &v
		c.patientsByFormat[format] = counter
	}
	c.mu.Unlock()
	atomic.AddInt64(counter, count)
}

func (c *InMemoryCollector) RecordChunkDuration(d time.Duration) { c.chunkAgg.add(d) }

func (c *InMemoryCollector) SetMemoryGauge(bytes int64) { atomic.StoreInt64(&c.memoryBytes, bytes) }

func (c *InMemoryCollector) RecordCacheHit(key string)  { atomic.AddInt64(&c.cacheHits, 1) }
func (c *InMemoryCollector) RecordCacheMiss(key string) { atomic.AddInt64(&c.cacheMisses, 1) }

func (c *InMemoryCollector) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits := atomic.LoadInt64(&c.cacheHits)
	misses := atomic.LoadInt64(&c.cacheMisses)

	stats := Stats{
		JobsByStatus:     copyCounters(c.jobsByStatus),
		PatientsByFormat: copyCounters(c.patientsByFormat),
		ChunkDuration:    c.chunkAgg.stats(),
		MemoryBytes:      atomic.LoadInt64(&c.memoryBytes),
		CacheHits:        hits,
		CacheMisses:      misses,
		StartTime:        c.startTime,
		Uptime:           time.Since(c.startTime),
	}
	if total := hits + misses; total > 0 {
		stats.CacheHitRatio = float64(hits) / float64(total)
	}
	return stats
}

func (c *InMemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.jobsByStatus = make(map[string]*int64)
	c.patientsByFormat = make(map[string]*int64)
	c.chunkAgg = newDurationAggregator()
	atomic.StoreInt64(&c.memoryBytes, 0)
	atomic.StoreInt64(&c.cacheHits, 0)
	atomic.StoreInt64(&c.cacheMisses, 0)
	c.startTime = time.Now()
}

func incrementCounter(mu *sync.RWMutex, m map[string]*int64, key string) {
	mu.Lock()
	counter, exists := m[key]
	if !exists {
		var v int64
		counter = &v
		m[key] = counter
	}
	mu.Unlock()
	atomic.AddInt64(counter, 1)
}

func copyCounters(m map[string]*int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = atomic.LoadInt64(v)
	}
	return out
}

type durationAggregator struct {
	mu    sync.Mutex
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

func newDurationAggregator() *durationAggregator {
	return &durationAggregator{min: time.Duration(1<<63 - 1)}
}

func (d *durationAggregator) add(dur time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count++
	d.total += dur
	if dur < d.min {
		d.min = dur
	}
	if dur > d.max {
		d.max = dur
	}
}

func (d *durationAggregator) stats() DurationStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	stats := DurationStats{Count: d.count, Total: d.total, Min: d.min, Max: d.max}
	if d.count > 0 {
		stats.Average = time.Duration(int64(d.total) / d.count)
	} else {
		stats.Min = 0
	}
	return stats
}

// NoOpCollector discards everything recorded.
type NoOpCollector struct{}

func (NoOpCollector) RecordJobStatus(status string)                  {}
func (NoOpCollector) RecordPatientsGenerated(format string, n int64) {}
func (NoOpCollector) RecordChunkDuration(d time.Duration)            {}
func (NoOpCollector) SetMemoryGauge(bytes int64)                     {}
func (NoOpCollector) RecordCacheHit(key string)                      {}
func (NoOpCollector) RecordCacheMiss(key string)                     {}
func (NoOpCollector) Stats() Stats                                   { return Stats{} }
func (NoOpCollector) Reset()                                         {}
