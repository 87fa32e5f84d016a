// Package execctx resolves the execution context a REST request runs
// under: which caller is asking and what per-job resource-limit overrides
// apply. It is the seam where real authentication and rate-limiting would
// plug in; this module ships a permissive default resolver only (spec §9
// Non-goals exclude authentication/authorization and multi-tenant quotas).
package execctx

import (
	"context"
	"net/http"
)

// ExecutionContext carries the resolved identity and limits for one request.
type ExecutionContext struct {
	CallerID             string
	MaxMemoryMBOverride  int
	MaxWallClockOverride int
}

// Resolver turns an inbound request into an ExecutionContext. Implementations
// may reject a request by returning an error (e.g. expired credentials,
// quota exceeded); the default resolver never does.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (*ExecutionContext, error)
}

// PermissiveResolver accepts every request under a shared anonymous caller
// identity with no resource-limit overrides.
type PermissiveResolver struct{}

// NewPermissiveResolver creates a resolver suitable for a single-tenant deployment.
func NewPermissiveResolver() *PermissiveResolver { return &PermissiveResolver{} }

func (PermissiveResolver) Resolve(ctx context.Context, r *http.Request) (*ExecutionContext, error) {
	callerID := r.Header.Get("X-Caller-ID")
	if callerID == "" {
		callerID = "anonymous"
	}
	return &ExecutionContext{CallerID: callerID}, nil
}

type ctxKey int

const execCtxKey ctxKey = 0

// WithExecutionContext attaches an ExecutionContext to ctx.
func WithExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, execCtxKey, ec)
}

// FromContext retrieves the ExecutionContext attached by middleware, if any.
func FromContext(ctx context.Context) (*ExecutionContext, bool) {
	ec, ok := ctx.Value(execCtxKey).(*ExecutionContext)
	return ec, ok
}

// Middleware resolves an ExecutionContext for every request and attaches it
// to the request's context, rejecting the request with 401 on resolver error.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ec, err := resolver.Resolve(r.Context(), r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := WithExecutionContext(r.Context(), ec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
