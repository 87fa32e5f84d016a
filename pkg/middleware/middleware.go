// Package middleware provides HTTP middleware for the casualty generator's
// REST control plane.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/banton/medical-patients-sub005/pkg/logging"
	"github.com/banton/medical-patients-sub005/pkg/metrics"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares so the first one listed runs outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// responseRecorder captures the status code written by downstream handlers
// so logging and metrics middleware can report it after the fact.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (r *responseRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.statusCode = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.statusCode = http.StatusOK
		r.wrote = true
	}
	return r.ResponseWriter.Write(b)
}

// WithRequestID attaches a unique request ID to the context and response
// header, generating one with google/uuid when the caller supplied none.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logging.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithLogging logs each request's method, path, status, and duration.
func WithLogging(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w}

			reqLogger := logger.WithContext(r.Context()).With("method", r.Method, "path", r.URL.Path)
			reqLogger.Debug("handling request")

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			status := rec.statusCode
			if status == 0 {
				status = http.StatusOK
			}
			reqLogger.Info("request completed", "status_code", status, "duration_ms", duration.Milliseconds())
		})
	}
}

// WithMetrics records each request's duration through the collector's
// chunk-duration aggregate; it keeps no separate request counter.
func WithMetrics(collector metrics.Collector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			collector.RecordChunkDuration(time.Since(start))
		})
	}
}

// WithRecover converts a panicking handler into a 500 response instead of
// crashing the process, logging the recovered value.
func WithRecover(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithContext(r.Context()).Error("panic recovered", "panic", rec)
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WithTimeout bounds request handling time, returning 503 if next does not
// finish before timeout. It does not cancel the downstream goroutine; long
// running work (job submission) must itself respect ctx.Done().
func WithTimeout(timeout time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, "request timed out")
	}
}
