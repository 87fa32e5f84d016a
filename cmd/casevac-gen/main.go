// Command casevac-gen runs the synthetic casualty generator's REST control
// plane: job submission, status/progress polling, cancellation, and
// artifact download.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/banton/medical-patients-sub005/api"
	"github.com/banton/medical-patients-sub005/internal/jobrunner"
	"github.com/banton/medical-patients-sub005/internal/refdata"
	"github.com/banton/medical-patients-sub005/internal/store"
	"github.com/banton/medical-patients-sub005/pkg/cache"
	"github.com/banton/medical-patients-sub005/pkg/config"
	"github.com/banton/medical-patients-sub005/pkg/execctx"
	apierrors "github.com/banton/medical-patients-sub005/pkg/errors"
	"github.com/banton/medical-patients-sub005/pkg/logging"
	"github.com/banton/medical-patients-sub005/pkg/metrics"
	"github.com/banton/medical-patients-sub005/pkg/middleware"
	"github.com/banton/medical-patients-sub005/pkg/pool"
	"github.com/banton/medical-patients-sub005/pkg/streaming"
)

func main() {
	cfg := config.NewDefault()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(&logging.Config{
		Level:   parseLevel(cfg.LogLevel),
		Format:  logging.Format(cfg.LogFormat),
		Output:  os.Stdout,
		Version: version,
	})

	outputDir := outputDirOrDefault()
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.Error("failed to create output directory", "path", outputDir, "error", err)
		os.Exit(1)
	}

	collector := metrics.NewInMemoryCollector()
	caches := cache.NewManager(cache.DefaultConfig())
	defer caches.Close()

	provider := refdata.New()
	repo := store.NewMemoryRepository()
	broker := streaming.NewBroker(64)
	jobPool := pool.NewJobPool(&pool.Config{MaxConcurrentJobs: cfg.ConcurrencyCap}, logger)

	runnerCfg := jobrunner.Config{
		DefaultChunkSize:     cfg.ChunkSize,
		DefaultMaxMemoryMB:   cfg.MaxMemoryMB,
		DefaultMaxCPUSeconds: cfg.MaxCPUSeconds,
		DefaultMaxWallClock:  cfg.MaxWallClock,
		OutputDir:            outputDir,
	}
	runner := jobrunner.NewRunner(runnerCfg, jobPool, repo, provider, broker, collector, logger, caches)

	warmupScheduleCache(caches, cfg.CacheWarmupKeys, logger)

	server := newServer(runner, repo, broker, collector, logger)
	addr := listenAddrOrDefault()

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE/WebSocket streams are long-lived
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(httpServer, logger)
}

// version is overridden at build time via -ldflags.
var version = "dev"

func outputDirOrDefault() string {
	if v := os.Getenv("CASEVAC_OUTPUT_DIR"); v != "" {
		return v
	}
	return "./data/output"
}

func listenAddrOrDefault() string {
	if v := os.Getenv("CASEVAC_LISTEN_ADDR"); v != "" {
		return v
	}
	return ":8080"
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// warmupScheduleCache precomputes nothing at start (no request parameters
// exist yet to key on); it only opens one cache namespace per configured
// key, matching the teacher's own cache-warmup posture of "reserve
// the namespace early, populate on first real request."
func warmupScheduleCache(caches *cache.Manager, keys []string, logger logging.Logger) {
	for _, key := range keys {
		caches.Namespace(key)
	}
	logger.Debug("cache namespaces warmed", "namespaces", keys)
}

func newServer(runner *jobrunner.Runner, repo store.Repository, broker *streaming.Broker, collector metrics.Collector, logger logging.Logger) http.Handler {
	router := mux.NewRouter()

	chain := middleware.Chain(
		middleware.WithRequestID(),
		middleware.WithRecover(logger),
		middleware.WithLogging(logger),
		middleware.WithMetrics(collector),
		execctx.Middleware(execctx.NewPermissiveResolver()),
	)

	h := &handlers{runner: runner, repo: repo, logger: logger, collector: collector}

	router.HandleFunc("/jobs", h.createJob).Methods(http.MethodPost)
	router.HandleFunc("/jobs/{id}", h.getJob).Methods(http.MethodGet)
	router.HandleFunc("/jobs/{id}/cancel", h.cancelJob).Methods(http.MethodPost)
	router.HandleFunc("/jobs/{id}/download", h.downloadJob).Methods(http.MethodGet)
	router.Handle("/jobs/{id}/events", streaming.NewSSEHandler(broker, muxJobID))
	router.Handle("/jobs/{id}/ws", streaming.NewWebSocketHandler(broker, muxJobID))
	router.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	router.HandleFunc("/metrics", h.metrics).Methods(http.MethodGet)

	return chain(router)
}

func muxJobID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

type handlers struct {
	runner    *jobrunner.Runner
	repo      store.Repository
	logger    logging.Logger
	collector metrics.Collector
}

func (h *handlers) createJob(w http.ResponseWriter, r *http.Request) {
	var req api.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierrors.New(apierrors.CodeValidation, "malformed job request body"))
		return
	}
	// max_wall_clock_seconds arrives as a bare number of seconds.
	req.MaxWallClockOverride *= time.Second

	if ec, ok := execctx.FromContext(r.Context()); ok {
		if req.MaxMemoryMBOverride == 0 {
			req.MaxMemoryMBOverride = ec.MaxMemoryMBOverride
		}
		if req.MaxWallClockOverride == 0 && ec.MaxWallClockOverride > 0 {
			req.MaxWallClockOverride = time.Duration(ec.MaxWallClockOverride) * time.Second
		}
	}

	state, err := h.runner.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}

func (h *handlers) getJob(w http.ResponseWriter, r *http.Request) {
	state, err := h.repo.GetByID(r.Context(), muxJobID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *handlers) cancelJob(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Cancel(r.Context(), muxJobID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) downloadJob(w http.ResponseWriter, r *http.Request) {
	state, err := h.repo.GetByID(r.Context(), muxJobID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if state.Status != api.JobCompleted {
		writeError(w, apierrors.New(apierrors.CodeNotReady, "job has not completed"))
		return
	}

	format := r.URL.Query().Get("format")
	for _, f := range state.OutputFiles {
		if format == "" || f.Format == format {
			http.ServeFile(w, r, f.Path)
			return
		}
	}
	writeError(w, apierrors.New(apierrors.CodeNotFound, "no matching output artifact"))
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	stats := h.runner.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"active_jobs":  stats.Pool.InUse,
		"memory_bytes": stats.MemoryBytes,
	})
}

func (h *handlers) metrics(w http.ResponseWriter, r *http.Request) {
	collector, ok := h.statsSource()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, collector.Stats())
}

// statsSource exists so /metrics degrades gracefully if no collector was
// wired (it always is in main, but handlers stay independently testable).
func (h *handlers) statsSource() (metrics.Collector, bool) {
	return h.collector, h.collector != nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *apierrors.Error
	if errors.As(err, &apiErr) {
		writeJSON(w, statusForCode(apiErr.Code), apiErr)
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func statusForCode(code apierrors.Code) int {
	switch code {
	case apierrors.CodeValidation:
		return http.StatusBadRequest
	case apierrors.CodeNotFound:
		return http.StatusNotFound
	case apierrors.CodeNotReady:
		return http.StatusConflict
	case apierrors.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func waitForShutdown(server *http.Server, logger logging.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
