package job

import (
	"context"
	"time"
)

// Definition describes a job type: its name, the other job types that must
// not be running for it to start, and its retry policy.
type Definition struct {
	// JobType is the unique name of this job type.
	JobType string

	// BlockingJobTypes are job types whose run-lock blocks this type
	// from starting. The job's own type is always checked in addition.
	BlockingJobTypes []string

	// Retries is how many times a failed execution is re-attempted
	// within the same job record. Zero means no retries.
	Retries int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// Runnable is the capability interface for job business logic.
// Implementations are registered by job type and executed on a worker.
type Runnable interface {
	// Definition returns the job type definition.
	Definition() Definition

	// Execute runs the job. Returning (false, nil) means there was
	// nothing to do and the job is marked skipped. A non-nil error is
	// appended to the job's log as an ERROR message.
	Execute(ctx context.Context) (bool, error)
}

// Func adapts a plain function to the Runnable interface.
type Func struct {
	Def Definition
	Fn  func(ctx context.Context) (bool, error)
}

// NewFunc creates a Runnable from a definition and a function.
func NewFunc(def Definition, fn func(ctx context.Context) (bool, error)) *Func {
	return &Func{Def: def, Fn: fn}
}

// Definition returns the job type definition.
func (f *Func) Definition() Definition { return f.Def }

// Execute invokes the wrapped function.
func (f *Func) Execute(ctx context.Context) (bool, error) { return f.Fn(ctx) }
