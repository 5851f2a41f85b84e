// Package runlock defines the run-lock registry contract: a per-type
// exclusivity token preventing concurrent execution of the same job type
// across process instances.
//
// The registry is a single shared mapping of job type to running job ID.
// Presence of an entry is the sole truth for "is this type currently
// allowed to start". Acquisition must be one indivisible storage operation
// covering the disabled-types set and every conflicting type: a
// read-then-write sequence is not acceptable because arbitrary callers
// acquire concurrently across process boundaries.
package runlock

import (
	"context"

	"github.com/jobward/jobward/id"
)

// RunningJob is one entry of the run-lock registry.
type RunningJob struct {
	JobID   id.JobID `json:"job_id"`
	JobType string   `json:"job_type"`
}

// Store defines the persistence contract for the run-lock registry and the
// disabled-types set.
type Store interface {
	// Acquire atomically marks jobType as running under jobID. It fails
	// with jobward.ErrJobTypeDisabled when the type is administratively
	// disabled, and with jobward.ErrJobBlocked when the type itself or
	// any of the blocking types holds the lock. The check and the write
	// are a single atomic conditional storage operation.
	Acquire(ctx context.Context, jobType string, jobID id.JobID, blockingTypes []string) error

	// Release clears the lock entry for jobType. Releasing a type with
	// no current entry is a no-op, not an error.
	Release(ctx context.Context, jobType string) error

	// RunningJobs returns a snapshot of all current lock entries.
	RunningJobs(ctx context.Context) ([]RunningJob, error)

	// DisableJobType adds the type to the disabled set. Disabled types
	// cannot acquire the lock until enabled again.
	DisableJobType(ctx context.Context, jobType string) error

	// EnableJobType removes the type from the disabled set. Enabling a
	// type that is not disabled is a no-op.
	EnableJobType(ctx context.Context, jobType string) error

	// DisabledJobTypes returns the disabled set.
	DisabledJobTypes(ctx context.Context) ([]string, error)
}
