package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/jobward/jobward/job"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type jobStartedEntry struct {
	name string
	hook JobStarted
}

type jobStoppedEntry struct {
	name string
	hook JobStopped
}

type jobSkippedEntry struct {
	name string
	hook JobSkipped
}

type jobDeadEntry struct {
	name string
	hook JobDead
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	jobStarted []jobStartedEntry
	jobStopped []jobStoppedEntry
	jobSkipped []jobSkippedEntry
	jobDead    []jobDeadEntry
	shutdown   []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name, h})
	}
	if h, ok := e.(JobStopped); ok {
		r.jobStopped = append(r.jobStopped, jobStoppedEntry{name, h})
	}
	if h, ok := e.(JobSkipped); ok {
		r.jobSkipped = append(r.jobSkipped, jobSkippedEntry{name, h})
	}
	if h, ok := e.(JobDead); ok {
		r.jobDead = append(r.jobDead, jobDeadEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions in registration order.
func (r *Registry) Extensions() []Extension { return r.extensions }

// EmitJobStarted notifies all JobStarted hooks.
func (r *Registry) EmitJobStarted(ctx context.Context, j *job.JobInfo) {
	for _, e := range r.jobStarted {
		if err := e.hook.OnJobStarted(ctx, j); err != nil {
			r.logHookError(e.name, "OnJobStarted", err)
		}
	}
}

// EmitJobStopped notifies all JobStopped hooks.
func (r *Registry) EmitJobStopped(ctx context.Context, j *job.JobInfo, elapsed time.Duration) {
	for _, e := range r.jobStopped {
		if err := e.hook.OnJobStopped(ctx, j, elapsed); err != nil {
			r.logHookError(e.name, "OnJobStopped", err)
		}
	}
}

// EmitJobSkipped notifies all JobSkipped hooks.
func (r *Registry) EmitJobSkipped(ctx context.Context, j *job.JobInfo) {
	for _, e := range r.jobSkipped {
		if err := e.hook.OnJobSkipped(ctx, j); err != nil {
			r.logHookError(e.name, "OnJobSkipped", err)
		}
	}
}

// EmitJobDead notifies all JobDead hooks.
func (r *Registry) EmitJobDead(ctx context.Context, j *job.JobInfo) {
	for _, e := range r.jobDead {
		if err := e.hook.OnJobDead(ctx, j); err != nil {
			r.logHookError(e.name, "OnJobDead", err)
		}
	}
}

// EmitShutdown notifies all Shutdown hooks.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError(e.name, "OnShutdown", err)
		}
	}
}

func (r *Registry) logHookError(extension, hook string, err error) {
	r.logger.Warn("extension hook failed",
		slog.String("extension", extension),
		slog.String("hook", hook),
		slog.String("error", err.Error()),
	)
}
