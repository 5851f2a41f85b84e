package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jobward/jobward/ext"
	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/job"
	"github.com/jobward/jobward/middleware"
)

// Lifecycle is the subset of engine operations the runner drives while a
// job executes. All methods are silent no-ops for unknown job IDs.
type Lifecycle interface {
	KeepAlive(ctx context.Context, jobID id.JobID) error
	AppendMessage(ctx context.Context, jobID id.JobID, msg job.Message) error
	MarkSkipped(ctx context.Context, jobID id.JobID) error
	MarkRestarted(ctx context.Context, jobID id.JobID) error
	StopJob(ctx context.Context, jobID id.JobID) error
}

// Runner executes one job's business logic on a worker: it runs the
// Runnable through the middleware chain, sends keep-alive pings while it
// executes, retries per the definition, and finalizes the record.
//
// Stopping a job never interrupts the Runnable: there is no cooperative
// cancellation signal, and detection of stalled jobs is the reaper's concern.
type Runner struct {
	jobInfo           *job.JobInfo
	runnable          job.Runnable
	lifecycle         Lifecycle
	extensions        *ext.Registry
	mw                middleware.Middleware
	keepAliveInterval time.Duration
	clock             func() time.Time
	logger            *slog.Logger
}

// NewRunner creates a Runner for one job execution.
func NewRunner(
	jobInfo *job.JobInfo,
	runnable job.Runnable,
	lifecycle Lifecycle,
	extensions *ext.Registry,
	mw middleware.Middleware,
	keepAliveInterval time.Duration,
	clock func() time.Time,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		jobInfo:           jobInfo,
		runnable:          runnable,
		lifecycle:         lifecycle,
		extensions:        extensions,
		mw:                mw,
		keepAliveInterval: keepAliveInterval,
		clock:             clock,
		logger:            logger,
	}
}

// Run executes the job to completion and finalizes its record.
func (r *Runner) Run(ctx context.Context) {
	stopPing := make(chan struct{})
	var pingWg sync.WaitGroup
	if r.keepAliveInterval > 0 {
		pingWg.Add(1)
		go r.keepAliveLoop(stopPing, &pingWg)
	}

	start := r.clock()
	executed, err := r.execute(ctx)

	close(stopPing)
	pingWg.Wait()

	jobID := r.jobInfo.ID

	switch {
	case err != nil:
		// The ERROR-level message forces the record into StatusError.
		msg := job.NewMessage(job.LevelError, err.Error(), r.clock())
		if appendErr := r.lifecycle.AppendMessage(ctx, jobID, msg); appendErr != nil {
			r.logLifecycleError("append error message", appendErr)
		}
	case !executed:
		if skipErr := r.lifecycle.MarkSkipped(ctx, jobID); skipErr != nil {
			r.logLifecycleError("mark skipped", skipErr)
		}
		r.extensions.EmitJobSkipped(ctx, r.jobInfo)
	}

	if stopErr := r.lifecycle.StopJob(ctx, jobID); stopErr != nil {
		r.logLifecycleError("stop job", stopErr)
	}

	r.extensions.EmitJobStopped(ctx, r.jobInfo, r.clock().Sub(start))
}

// execute runs the Runnable through middleware, retrying per the
// definition. Each retry marks the record restarted (status back to OK)
// before the next attempt.
func (r *Runner) execute(ctx context.Context) (bool, error) {
	def := r.runnable.Definition()

	terminal := func(ctx context.Context) (bool, error) {
		return r.runnable.Execute(ctx)
	}

	executed, err := r.mw(ctx, r.jobInfo, terminal)

	for attempt := 1; err != nil && attempt <= def.Retries; attempt++ {
		r.logger.Warn("job execution failed, restarting",
			slog.String("job_type", r.jobInfo.JobType),
			slog.String("job_id", r.jobInfo.ID.String()),
			slog.Int("attempt", attempt),
			slog.Int("retries", def.Retries),
			slog.String("error", err.Error()),
		)

		if restartErr := r.lifecycle.MarkRestarted(ctx, r.jobInfo.ID); restartErr != nil {
			r.logLifecycleError("mark restarted", restartErr)
		}

		if def.RetryDelay > 0 {
			select {
			case <-time.After(def.RetryDelay):
			case <-ctx.Done():
				return executed, ctx.Err()
			}
		}

		executed, err = r.mw(ctx, r.jobInfo, terminal)
	}

	return executed, err
}

// keepAliveLoop refreshes the job's last-updated timestamp so the reaper
// can tell a slow job from a dead one.
func (r *Runner) keepAliveLoop(stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(r.keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := r.lifecycle.KeepAlive(context.Background(), r.jobInfo.ID); err != nil {
				r.logger.Warn("keep-alive failed",
					slog.String("job_id", r.jobInfo.ID.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (r *Runner) logLifecycleError(op string, err error) {
	r.logger.Error("job lifecycle update failed",
		slog.String("op", op),
		slog.String("job_type", r.jobInfo.JobType),
		slog.String("job_id", r.jobInfo.ID.String()),
		slog.String("error", err.Error()),
	)
}
