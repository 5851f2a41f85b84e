// Package middleware provides composable middleware for job execution.
// Middleware wraps Runnable calls synchronously and can modify execution
// (recover from panics, log, record metrics, etc.).
package middleware

import (
	"context"

	"github.com/jobward/jobward/job"
)

// Handler is the terminal function that executes job logic. The boolean
// mirrors Runnable.Execute: false means the job had nothing to do.
type Handler func(ctx context.Context) (bool, error)

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the job being executed, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, j *job.JobInfo, next Handler) (bool, error)

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, metrics) executes as:
//
//	logging → recover → metrics → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, j *job.JobInfo, next Handler) (bool, error) {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) (bool, error) {
				return mw(ctx, j, prev)
			}
		}
		return h(ctx)
	}
}
