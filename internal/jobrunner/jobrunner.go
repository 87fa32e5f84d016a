// Package jobrunner owns the per-job lifecycle (C7): admission through
// the worker pool, chunked patient materialization, resource-limit
// enforcement, progress reporting, and cooperative cancellation.
package jobrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banton/medical-patients-sub005/api"
	"github.com/banton/medical-patients-sub005/internal/demographics"
	"github.com/banton/medical-patients-sub005/internal/flow"
	"github.com/banton/medical-patients-sub005/internal/injury"
	"github.com/banton/medical-patients-sub005/internal/output"
	"github.com/banton/medical-patients-sub005/internal/refdata"
	"github.com/banton/medical-patients-sub005/internal/schedule"
	"github.com/banton/medical-patients-sub005/internal/store"
	"github.com/banton/medical-patients-sub005/pkg/cache"
	"github.com/banton/medical-patients-sub005/pkg/errors"
	"github.com/banton/medical-patients-sub005/pkg/logging"
	"github.com/banton/medical-patients-sub005/pkg/metrics"
	"github.com/banton/medical-patients-sub005/pkg/pool"
	"github.com/banton/medical-patients-sub005/pkg/streaming"
)

// scheduleCacheNamespace holds fully-materialized schedules keyed by the
// request parameters that determine them, so two jobs submitted with an
// identical request (including seed) skip recomputing C2 (spec.md §4.8).
const scheduleCacheNamespace = "schedules"

const (
	phaseScheduling    = "scheduling"
	phaseMaterializing = "materializing"
	phaseFinalizing    = "finalizing"
)

// Config bounds the Runner's default resource limits; a JobRequest may
// override the chunk size and each limit per job (spec.md §9 "Recognized
// JobRequest options"). OutputDir has no per-job override.
type Config struct {
	DefaultChunkSize     int
	DefaultMaxMemoryMB   int
	DefaultMaxCPUSeconds int
	DefaultMaxWallClock  time.Duration
	OutputDir            string
}

// Runner executes jobs end to end and keeps their persisted state and
// progress stream up to date.
type Runner struct {
	cfg      Config
	pool     *pool.JobPool
	repo     store.Repository
	provider refdata.Provider
	broker   *streaming.Broker
	metrics  metrics.Collector
	logger   logging.Logger
	caches   *cache.Manager

	mu         sync.Mutex
	cancelFlag map[string]bool
}

// NewRunner wires a Runner from its collaborators. caches may be nil, in
// which case every schedule is rebuilt.
func NewRunner(cfg Config, jobPool *pool.JobPool, repo store.Repository, provider refdata.Provider, broker *streaming.Broker, collector metrics.Collector, logger logging.Logger, caches *cache.Manager) *Runner {
	return &Runner{
		cfg:        cfg,
		pool:       jobPool,
		repo:       repo,
		provider:   provider,
		broker:     broker,
		metrics:    collector,
		logger:     logger,
		caches:     caches,
		cancelFlag: make(map[string]bool),
	}
}

// Submit creates a job's initial pending state and starts executing it
// in the background. It returns immediately with the created state.
func (r *Runner) Submit(ctx context.Context, req api.JobRequest) (api.JobState, error) {
	if req.TotalPatients <= 0 {
		return api.JobState{}, errors.New(errors.CodeValidation, "total-patients must be at least 1")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	state := api.JobState{
		JobID:     req.ID,
		Status:    api.JobPending,
		CreatedAt: time.Now(),
		Details:   api.ProgressDetails{Phase: phaseScheduling, TotalPatients: req.TotalPatients},
	}
	if err := r.repo.Create(ctx, state); err != nil {
		return api.JobState{}, err
	}
	r.metrics.RecordJobStatus(string(api.JobPending))

	go r.run(req)

	return state, nil
}

// Cancel requests cooperative cancellation. Idempotent on terminal
// states (spec.md §5 "Cancellation").
func (r *Runner) Cancel(ctx context.Context, jobID string) error {
	state, err := r.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if isTerminal(state.Status) {
		return nil
	}

	r.mu.Lock()
	r.cancelFlag[jobID] = true
	r.mu.Unlock()
	return nil
}

func (r *Runner) isCancelled(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelFlag[jobID]
}

func (r *Runner) clearCancel(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancelFlag, jobID)
}

func isTerminal(status api.JobStatus) bool {
	switch status {
	case api.JobCompleted, api.JobFailed, api.JobCancelled:
		return true
	default:
		return false
	}
}

// run executes the full pipeline for one job: admission, scheduling
// (once), chunked materialization, and finalization.
func (r *Runner) run(req api.JobRequest) {
	ctx := context.Background()
	defer r.clearCancel(req.ID)

	wallClock := req.MaxWallClockOverride
	if wallClock <= 0 {
		wallClock = r.cfg.DefaultMaxWallClock
	}
	runCtx, cancel := context.WithTimeout(ctx, wallClock)
	defer cancel()

	if err := r.pool.Acquire(runCtx, req.ID); err != nil {
		r.fail(ctx, req.ID, errors.Wrap(errors.CodeResourceLimit, "admission wait cancelled or timed out", err))
		return
	}
	defer r.pool.Release(req.ID)

	r.transition(ctx, req.ID, api.JobRunning, phaseScheduling, 0)
	r.metrics.RecordJobStatus(string(api.JobRunning))

	// Scheduling draws from its own stream so that a schedule served from
	// the cache leaves the materialization stream exactly as a fresh build
	// would.
	rng := schedule.NewSeededRand(req.Seed)

	// The scheduler runs exactly once per job: chunking applies only to
	// the downstream materialization loop (spec.md §4.7 "Critical rule").
	sched, err := r.buildSchedule(req, schedule.NewSeededRand(req.Seed))
	if err != nil {
		r.fail(ctx, req.ID, err)
		return
	}

	writers, paths, err := r.openWriters(req)
	if err != nil {
		r.fail(ctx, req.ID, err)
		return
	}

	summary := api.SummaryCounters{
		NationalityHistogram: map[string]int{},
		InjuryHistogram:      map[string]int{},
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = r.cfg.DefaultChunkSize
	}
	if chunkSize <= 0 {
		chunkSize = len(sched.Entries)
	}

	maxMemoryMB := req.MaxMemoryMBOverride
	if maxMemoryMB <= 0 {
		maxMemoryMB = r.cfg.DefaultMaxMemoryMB
	}

	maxCPUSeconds := req.MaxCPUSecondsOverride
	if maxCPUSeconds <= 0 {
		maxCPUSeconds = r.cfg.DefaultMaxCPUSeconds
	}

	entries := sched.Entries
	processed := 0
	var cpuTimeAccrued time.Duration

	for start := 0; start < len(entries); start += chunkSize {
		chunkStart := time.Now()

		if r.isCancelled(req.ID) {
			r.cancel(ctx, req.ID, writers, paths, processed, len(entries))
			return
		}
		select {
		case <-runCtx.Done():
			r.failTimeout(ctx, req.ID, writers, paths)
			return
		default:
		}

		end := start + chunkSize
		if end > len(entries) {
			end = len(entries)
		}

		for i := start; i < end; i++ {
			patient, err := r.materialize(req, entries[i], i, rng)
			if err != nil {
				r.abortWriters(writers, paths)
				r.fail(ctx, req.ID, err)
				return
			}

			for _, w := range writers {
				if err := w.Append(patient); err != nil {
					r.abortWriters(writers, paths)
					r.fail(ctx, req.ID, err)
					return
				}
			}

			recordOutcome(&summary, patient)
			processed++
		}

		chunkElapsed := time.Since(chunkStart)
		cpuTimeAccrued += chunkElapsed
		r.pool.TouchChunk(req.ID)
		r.metrics.RecordChunkDuration(chunkElapsed)

		if exceeded, reason := r.exceedsMemory(maxMemoryMB); exceeded {
			r.abortWriters(writers, paths)
			r.fail(ctx, req.ID, errors.New(errors.CodeResourceLimit, reason))
			return
		}

		if exceeded, reason := r.exceedsCPUTime(cpuTimeAccrued, maxCPUSeconds); exceeded {
			r.abortWriters(writers, paths)
			r.fail(ctx, req.ID, errors.New(errors.CodeResourceLimit, reason))
			return
		}

		progress := clampProgress(float64(processed) / float64(len(entries)))
		r.transitionProgress(ctx, req.ID, phaseMaterializing, processed, len(entries), progress)
	}

	for _, w := range writers {
		if err := w.Close(); err != nil {
			r.fail(ctx, req.ID, err)
			return
		}
	}

	var outputFiles []api.OutputFile
	for i, path := range paths {
		info, statErr := os.Stat(path)
		var size int64
		if statErr == nil {
			size = info.Size()
		}
		outputFiles = append(outputFiles, api.OutputFile{Format: req.Output.Formats[i], Path: path, Bytes: size})
		r.metrics.RecordPatientsGenerated(req.Output.Formats[i], int64(len(entries)))
	}

	now := time.Now()
	final := api.JobState{
		JobID:       req.ID,
		Status:      api.JobCompleted,
		Progress:    1.0,
		Details:     api.ProgressDetails{Phase: phaseFinalizing, PhaseDescription: "completed", ProcessedPatients: len(entries), TotalPatients: len(entries)},
		CreatedAt:   mustExistingCreatedAt(ctx, r.repo, req.ID),
		CompletedAt: &now,
		OutputFiles: outputFiles,
		Summary:     summary,
	}
	if err := r.repo.Update(ctx, final); err != nil {
		r.logger.Error("failed to persist completed job state", "job_id", req.ID, "error", err)
	}
	r.metrics.RecordJobStatus(string(api.JobCompleted))
	r.publish(req.ID, string(api.JobCompleted), processed, len(entries), 1.0, "completed")
}

// buildSchedule returns req's schedule, serving a cached copy when one
// matching its parameters (including seed) already exists.
func (r *Runner) buildSchedule(req api.JobRequest, rng *schedule.SeededRand) (*api.Schedule, error) {
	if r.caches == nil {
		return schedule.Build(req, rng)
	}

	scheduleCache := r.caches.Namespace(scheduleCacheNamespace)
	key := cache.Key("schedule", scheduleCacheParams(req))

	if cached, ok := scheduleCache.Get(key); ok {
		var sched api.Schedule
		if err := json.Unmarshal(cached, &sched); err == nil {
			r.metrics.RecordCacheHit(key)
			return &sched, nil
		}
	}
	r.metrics.RecordCacheMiss(key)

	sched, err := schedule.Build(req, rng)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(sched); err == nil {
		scheduleCache.Set("schedule", key, encoded)
	}
	return sched, nil
}

func scheduleCacheParams(req api.JobRequest) map[string]interface{} {
	return map[string]interface{}{
		"total_patients":  req.TotalPatients,
		"days":            req.DaysOfFighting,
		"base_date":       req.BaseDate,
		"warfare_types":   req.WarfareTypes,
		"intensity":       req.Intensity,
		"tempo":           req.Tempo,
		"fronts":          req.Fronts,
		"special_events":  req.SpecialEvents,
		"seed":            req.Seed,
	}
}

// materialize runs C3/C4/C5 in order for one scheduled entry, preserving
// schedule order within the job (spec.md §5 "Ordering guarantees").
func (r *Runner) materialize(req api.JobRequest, entry api.ScheduleEntry, index int, rng *schedule.SeededRand) (api.Patient, error) {
	front := findFront(req.Fronts, entry.FrontID)
	nationalityCode := pickNationality(front, rng)

	nat, ok := r.provider.NationalityByCode(nationalityCode)
	if !ok {
		nats := r.provider.Nationalities()
		if len(nats) == 0 {
			return api.Patient{}, errors.New(errors.CodeConfiguration, "no nationalities configured")
		}
		nat = nats[0]
	}

	demo := demographics.Generate(nat, index, rng)

	assignment := injury.Assign(r.provider, entry.WarfareScenario, req.EnvironmentalConditions, req.InjuryMixOverride, rng)

	chain := front.ChainOverride
	if len(chain) == 0 {
		chain = r.provider.ChainFor(entry.FrontID)
	}

	timeline, finalStatus, lastFacility, err := flow.Simulate(r.provider, entry.InjuryInstant, assignment.TriageCategory, assignment.TriageNature, assignment.CBRNContaminated, chain, rng)
	if err != nil {
		return api.Patient{}, err
	}

	return api.Patient{
		ID:               index,
		Demographics:     demo,
		NationalityCode:  nat.Code,
		FrontID:          entry.FrontID,
		InjuryType:       assignment.InjuryType,
		TriageCategory:   assignment.TriageCategory,
		TriageNature:     assignment.TriageNature,
		BodyRegion:       assignment.BodyRegion,
		CBRNContaminated: assignment.CBRNContaminated,
		InjuryTimestamp:  entry.InjuryInstant,
		MovementTimeline: timeline,
		FinalStatus:      finalStatus,
		LastFacility:     lastFacility,
	}, nil
}

func findFront(fronts []api.FrontConfig, frontID string) api.FrontConfig {
	for _, f := range fronts {
		if f.FrontID == frontID {
			return f
		}
	}
	return api.FrontConfig{}
}

func pickNationality(front api.FrontConfig, rng *schedule.SeededRand) string {
	codes := demographics.SortedNationalityCodes(front.NationalityDistribution)
	if len(codes) == 0 {
		return ""
	}

	weights := make([]float64, len(codes))
	var total float64
	for i, c := range codes {
		weights[i] = front.NationalityDistribution[c]
		total += weights[i]
	}
	if total <= 0 {
		return codes[0]
	}

	target := rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return codes[i]
		}
	}
	return codes[len(codes)-1]
}

func recordOutcome(summary *api.SummaryCounters, p api.Patient) {
	switch p.FinalStatus {
	case api.StatusKIA:
		summary.KIACount++
	case api.StatusRTD:
		summary.RTDCount++
	case api.StatusRemainsRole4:
		summary.RemainsCount++
	}
	summary.NationalityHistogram[p.NationalityCode]++
	summary.InjuryHistogram[p.InjuryType]++
}

func (r *Runner) openWriters(req api.JobRequest) ([]output.Writer, []string, error) {
	if len(req.Output.Formats) == 0 {
		return nil, nil, errors.New(errors.CodeValidation, "at least one output format is required")
	}

	opts := output.Options{Compression: req.Output.Compression}
	if req.Output.HasEncryptionKey {
		opts.EncryptionKey = req.Output.EncryptionKey
	}

	var writers []output.Writer
	var paths []string
	for _, format := range req.Output.Formats {
		ext := extensionFor(format, opts)
		path := filepath.Join(r.cfg.OutputDir, fmt.Sprintf("%s.%s", req.ID, ext))

		var w output.Writer
		var err error
		switch format {
		case "json":
			w, err = output.OpenRecordWriter(path, opts)
		case "csv":
			w, err = output.OpenTabularWriter(path, opts)
		default:
			err = errors.New(errors.CodeValidation, "unsupported output format: "+format)
		}
		if err != nil {
			r.abortWriters(writers, paths)
			return nil, nil, err
		}
		writers = append(writers, w)
		paths = append(paths, path)
	}
	return writers, paths, nil
}

func extensionFor(format string, opts output.Options) string {
	ext := format
	if opts.Compression {
		ext += ".gz"
	}
	if opts.EncryptionKey != nil {
		ext += ".enc"
	}
	return ext
}

func (r *Runner) abortWriters(writers []output.Writer, paths []string) {
	for i, w := range writers {
		_ = w.Close()
		if i < len(paths) {
			os.Remove(paths[i])
			os.Remove(paths[i] + ".tmp")
		}
	}
}

func (r *Runner) exceedsMemory(maxMemoryMB int) (bool, string) {
	if maxMemoryMB <= 0 {
		return false, ""
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	r.metrics.SetMemoryGauge(int64(stats.Alloc))

	limitBytes := int64(maxMemoryMB) * 1024 * 1024
	if int64(stats.Alloc) > limitBytes {
		return true, fmt.Sprintf("resident memory %d MB exceeds limit %d MB", stats.Alloc/(1024*1024), maxMemoryMB)
	}
	return false, ""
}

// exceedsCPUTime checks accrued wall time against the job's CPU-time
// budget. Go exposes no per-goroutine CPU-time accounting, so accumulated
// chunk wall time stands in as a practical proxy: a job that is not
// blocked on I/O spends nearly all of that wall time on CPU.
func (r *Runner) exceedsCPUTime(accrued time.Duration, maxCPUSeconds int) (bool, string) {
	if maxCPUSeconds <= 0 {
		return false, ""
	}
	limit := time.Duration(maxCPUSeconds) * time.Second
	if accrued > limit {
		return true, fmt.Sprintf("cpu time %s exceeds limit %ds", accrued.Round(time.Millisecond), maxCPUSeconds)
	}
	return false, ""
}

// Stats reports the runner's current pool occupancy and memory usage, for
// the control plane's health endpoint (spec.md §6).
func (r *Runner) Stats() RunnerStats {
	return RunnerStats{
		Pool:        r.pool.Stats(),
		MemoryBytes: r.metrics.Stats().MemoryBytes,
	}
}

// RunnerStats is the liveness/capacity/memory snapshot Stats returns.
type RunnerStats struct {
	Pool        pool.Stats `json:"pool"`
	MemoryBytes int64      `json:"memory_bytes"`
}

func clampProgress(p float64) float64 {
	if p > 1.0 {
		return 1.0
	}
	if p < 0 {
		return 0
	}
	return p
}

func (r *Runner) transition(ctx context.Context, jobID string, status api.JobStatus, phase string, progress float64) {
	existing, err := r.repo.GetByID(ctx, jobID)
	if err != nil {
		existing = api.JobState{JobID: jobID, CreatedAt: time.Now()}
	}
	existing.Status = status
	existing.Progress = progress
	existing.Details.Phase = phase
	if err := r.repo.Update(ctx, existing); err != nil {
		r.logger.Error("failed to persist job transition", "job_id", jobID, "error", err)
	}
}

func (r *Runner) transitionProgress(ctx context.Context, jobID string, phase string, processed, total int, progress float64) {
	existing, err := r.repo.GetByID(ctx, jobID)
	if err != nil {
		return
	}
	existing.Progress = progress
	existing.Details = api.ProgressDetails{
		Phase:             phase,
		PhaseDescription:  fmt.Sprintf("materialized %d/%d patients", processed, total),
		ProcessedPatients: processed,
		TotalPatients:     total,
	}
	if err := r.repo.Update(ctx, existing); err != nil {
		r.logger.Error("failed to persist job progress", "job_id", jobID, "error", err)
	}
	r.publish(jobID, string(api.JobRunning), processed, total, progress, existing.Details.PhaseDescription)
}

func (r *Runner) fail(ctx context.Context, jobID string, cause error) {
	existing, err := r.repo.GetByID(ctx, jobID)
	if err != nil {
		existing = api.JobState{JobID: jobID, CreatedAt: time.Now()}
	}
	existing.Status = api.JobFailed
	existing.ErrorMessage = cause.Error()
	if uerr := r.repo.Update(ctx, existing); uerr != nil {
		r.logger.Error("failed to persist failed job state", "job_id", jobID, "error", uerr)
	}
	r.metrics.RecordJobStatus(string(api.JobFailed))
	r.logger.Error("job failed", "job_id", jobID, "error", cause)
	r.publish(jobID, string(api.JobFailed), 0, 0, existing.Progress, cause.Error())
}

func (r *Runner) failTimeout(ctx context.Context, jobID string, writers []output.Writer, paths []string) {
	r.abortWriters(writers, paths)
	r.fail(ctx, jobID, errors.New(errors.CodeResourceLimit, "timeout: wall-clock limit exceeded"))
}

func (r *Runner) cancel(ctx context.Context, jobID string, writers []output.Writer, paths []string, processed, total int) {
	r.abortWriters(writers, paths)

	existing, err := r.repo.GetByID(ctx, jobID)
	if err != nil {
		existing = api.JobState{JobID: jobID, CreatedAt: time.Now()}
	}
	existing.Status = api.JobCancelled
	existing.Details = api.ProgressDetails{Phase: phaseMaterializing, ProcessedPatients: processed, TotalPatients: total}
	if uerr := r.repo.Update(ctx, existing); uerr != nil {
		r.logger.Error("failed to persist cancelled job state", "job_id", jobID, "error", uerr)
	}
	r.metrics.RecordJobStatus(string(api.JobCancelled))
	r.publish(jobID, string(api.JobCancelled), processed, total, existing.Progress, "cancelled")
}

func (r *Runner) publish(jobID, status string, processed, total int, progress float64, message string) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(streaming.ProgressEvent{
		JobID:             jobID,
		Status:            status,
		RecordsGenerated:  int64(processed),
		TotalRecords:      int64(total),
		PercentComplete:   progress * 100,
		Message:           message,
		Timestamp:         time.Now(),
	})
}

func mustExistingCreatedAt(ctx context.Context, repo store.Repository, jobID string) time.Time {
	existing, err := repo.GetByID(ctx, jobID)
	if err != nil {
		return time.Now()
	}
	return existing.CreatedAt
}
