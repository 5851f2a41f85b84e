package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jobward/jobward"
)

// ReapDeadJobs kills every non-terminal job whose last keep-alive is older
// than the threshold, then sweeps the run-lock registry for leaked entries.
//
// Reaping is detection-only: the record is marked dead and its lock
// released, but a worker still executing the handler is not interrupted.
func (e *Engine) ReapDeadJobs(ctx context.Context, threshold time.Duration) error {
	cutoff := e.clock().Add(-threshold)

	e.logger.Info("job cleanup: looking for jobs without updates",
		slog.Time("cutoff", cutoff),
	)

	deadJobs, err := e.jobs.FindRunningWithoutUpdateSince(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, deadJob := range deadJobs {
		if killErr := e.KillJob(ctx, deadJob.ID); killErr != nil {
			e.logger.Error("failed to kill dead job",
				slog.String("job_id", deadJob.ID.String()),
				slog.String("job_type", deadJob.JobType),
				slog.String("error", killErr.Error()),
			)
		}
	}

	return e.clearRunLocks(ctx)
}

// clearRunLocks releases every lock entry whose job record is stopped or
// missing. This guards against lock leaks from crashes between "lock
// acquired" and "record persisted", or between stop and release. The sweep
// is idempotent and safe against concurrent start/stop traffic: releasing
// an already-released lock is a no-op.
func (e *Engine) clearRunLocks(ctx context.Context) error {
	runningJobs, err := e.locks.RunningJobs(ctx)
	if err != nil {
		return err
	}

	for _, running := range runningJobs {
		jobInfo, findErr := e.jobs.FindOne(ctx, running.JobID)
		switch {
		case errors.Is(findErr, jobward.ErrJobNotFound):
			e.releaseLock(ctx, running.JobType)
			e.logger.Error("cleared run-lock, job record missing",
				slog.String("job_type", running.JobType),
				slog.String("job_id", running.JobID.String()),
			)
		case findErr != nil:
			e.logger.Error("run-lock sweep: failed to load job record",
				slog.String("job_type", running.JobType),
				slog.String("job_id", running.JobID.String()),
				slog.String("error", findErr.Error()),
			)
		case jobInfo.IsStopped():
			e.releaseLock(ctx, running.JobType)
			e.logger.Error("cleared run-lock, job stopped already",
				slog.String("job_type", running.JobType),
				slog.String("job_id", running.JobID.String()),
			)
		}
	}

	return nil
}

// reaperLoop periodically reaps stale jobs until the engine stops.
func (e *Engine) reaperLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if err := e.ReapDeadJobs(context.Background(), e.config.StaleJobThreshold); err != nil {
				e.logger.Error("reap dead jobs failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
