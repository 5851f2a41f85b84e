// Package ext defines the extension system for jobward.
// Extensions are notified of lifecycle events (job started, stopped,
// skipped, reaped) and can react to them, for example with alerting.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about. Hooks are fire-and-forget: errors are
// logged and never propagate into the job lifecycle.
package ext

import (
	"context"
	"time"

	"github.com/jobward/jobward/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// JobStarted is called after a job acquired its run-lock and was
// dispatched for execution.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.JobInfo) error
}

// JobStopped is called after a job's record is finalized, whatever its
// status.
type JobStopped interface {
	OnJobStopped(ctx context.Context, j *job.JobInfo, elapsed time.Duration) error
}

// JobSkipped is called when a job reports there was nothing to do.
type JobSkipped interface {
	OnJobSkipped(ctx context.Context, j *job.JobInfo) error
}

// JobDead is called when the reaper marks a stale job dead.
type JobDead interface {
	OnJobDead(ctx context.Context, j *job.JobInfo) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
