package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/jobward/jobward/job"
)

// Logging returns middleware that logs job start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.JobInfo, next Handler) (bool, error) {
		logger.Info("job started",
			slog.String("job_type", j.JobType),
			slog.String("job_id", j.ID.String()),
		)

		start := time.Now()
		executed, err := next(ctx)
		elapsed := time.Since(start)

		switch {
		case err != nil:
			logger.Error("job failed",
				slog.String("job_type", j.JobType),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		case !executed:
			logger.Info("job skipped",
				slog.String("job_type", j.JobType),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		default:
			logger.Info("job completed",
				slog.String("job_type", j.JobType),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return executed, err
	}
}
