package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/jobward/jobward/job"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.JobInfo, next Handler) (executed bool, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("job runnable panicked",
					slog.String("job_type", j.JobType),
					slog.String("job_id", j.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				executed = true
				retErr = fmt.Errorf("panic in job %s: %v", j.JobType, r)
			}
		}()
		return next(ctx)
	}
}
