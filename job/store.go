package job

import (
	"context"
	"time"

	"github.com/jobward/jobward/id"
)

// Store defines the persistence contract for job records.
//
// Mutations addressed by job ID (AppendMessage, SetStatus, SetLastUpdated)
// are silent no-ops when the record does not exist: callers may race with
// concurrent deletion and must not fail for it.
type Store interface {
	// CreateOrUpdate persists a job record, replacing any previous
	// version with the same ID.
	CreateOrUpdate(ctx context.Context, j *JobInfo) error

	// FindOne retrieves a job by ID. Returns jobward.ErrJobNotFound if
	// no record exists.
	FindOne(ctx context.Context, jobID id.JobID) (*JobInfo, error)

	// FindLatest returns the most recently started jobs, newest first.
	FindLatest(ctx context.Context, limit int) ([]*JobInfo, error)

	// FindLatestByType returns the most recently started jobs of one
	// type, newest first.
	FindLatestByType(ctx context.Context, jobType string, limit int) ([]*JobInfo, error)

	// FindByType returns all jobs of the given type, newest first.
	FindByType(ctx context.Context, jobType string) ([]*JobInfo, error)

	// FindLatestDistinct returns the most recent job of every type.
	FindLatestDistinct(ctx context.Context) ([]*JobInfo, error)

	// FindAllWithoutMessages returns all jobs with the messages field
	// left empty, for cheap listings.
	FindAllWithoutMessages(ctx context.Context) ([]*JobInfo, error)

	// FindRunningWithoutUpdateSince returns non-terminal jobs whose
	// LastUpdated is strictly before the cutoff.
	FindRunningWithoutUpdateSince(ctx context.Context, cutoff time.Time) ([]*JobInfo, error)

	// AppendMessage appends one entry to the job's message log.
	AppendMessage(ctx context.Context, jobID id.JobID, msg Message) error

	// SetStatus updates the job's status field only.
	SetStatus(ctx context.Context, jobID id.JobID, status Status) error

	// SetLastUpdated refreshes the job's last-updated timestamp only.
	SetLastUpdated(ctx context.Context, jobID id.JobID, t time.Time) error

	// RemoveIfStopped deletes the record only when it is terminal.
	// Running jobs are left untouched.
	RemoveIfStopped(ctx context.Context, jobID id.JobID) error
}
