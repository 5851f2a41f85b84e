// Package engine implements the job lifecycle engine: it creates job
// records, acquires and releases per-type run-locks, appends log messages,
// drives status transitions, and reaps jobs that stopped sending
// keep-alives.
//
// The engine's methods are synchronous and safe for arbitrary concurrent
// callers. All cross-instance mutual exclusion is delegated to the store's
// atomic conditional write on the run-lock registry; no in-process lock is
// held across storage calls.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jobward/jobward"
	"github.com/jobward/jobward/ext"
	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/job"
	"github.com/jobward/jobward/middleware"
	"github.com/jobward/jobward/runlock"
	"github.com/jobward/jobward/store"
	"github.com/jobward/jobward/worker"
)

// Engine orchestrates the job lifecycle.
type Engine struct {
	config     jobward.Config
	jobs       job.Store
	locks      runlock.Store
	registry   *job.Registry
	extensions *ext.Registry
	pool       *worker.Pool
	mw         middleware.Middleware
	logger     *slog.Logger
	clock      func() time.Time
	hostname   string

	extraMws []middleware.Middleware

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine configuration.
func WithConfig(cfg jobward.Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock sets the time source. Defaults to UTC wall-clock time.
// Inject a fake clock for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithHostname sets the hostname stamped on each job record.
// Defaults to os.Hostname.
func WithHostname(hostname string) Option {
	return func(e *Engine) { e.hostname = hostname }
}

// WithExtension registers a lifecycle extension.
func WithExtension(x ext.Extension) Option {
	return func(e *Engine) { e.extensions.Register(x) }
}

// WithMiddleware appends middleware to the execution chain, after the
// default recover → metrics → logging stack.
func WithMiddleware(m middleware.Middleware) Option {
	return func(e *Engine) { e.extraMws = append(e.extraMws, m) }
}

// New creates an Engine on the given store and runnable registry.
func New(st store.Store, registry *job.Registry, opts ...Option) *Engine {
	e := &Engine{
		config:   jobward.DefaultConfig(),
		jobs:     st,
		locks:    st,
		registry: registry,
		logger:   slog.Default(),
		clock:    func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
	}
	e.extensions = ext.NewRegistry(e.logger)

	for _, opt := range opts {
		opt(e)
	}

	if e.hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		e.hostname = hostname
	}

	// Default middleware stack: recover → metrics → logging.
	mws := []middleware.Middleware{
		middleware.Recover(e.logger),
		middleware.Metrics(),
		middleware.Logging(e.logger),
	}
	mws = append(mws, e.extraMws...)
	e.mw = middleware.Chain(mws...)

	e.pool = worker.NewPool(e.logger,
		worker.WithPoolConcurrency(e.config.Concurrency),
		worker.WithPoolQueueDepth(e.config.QueueDepth),
	)

	return e
}

// Extensions returns the extension registry.
func (e *Engine) Extensions() *ext.Registry { return e.extensions }

// Registry returns the runnable registry.
func (e *Engine) Registry() *job.Registry { return e.registry }

// Start launches the worker pool and, when configured, the periodic
// reaper. It returns immediately.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	e.started = true

	e.logger.Info("job engine starting",
		slog.Any("job_types", e.registry.JobTypes()),
		slog.Int("concurrency", e.config.Concurrency),
	)

	if err := e.pool.Start(ctx); err != nil {
		return err
	}

	if e.config.ReapInterval > 0 {
		e.wg.Add(1)
		go e.reaperLoop()
	}

	return nil
}

// Stop shuts the engine down: the reaper stops, in-flight jobs run to
// completion (bounded by the context deadline), and Shutdown hooks fire.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	e.mu.Unlock()

	close(e.stopCh)
	e.wg.Wait()

	err := e.pool.Stop(ctx)

	e.extensions.EmitShutdown(ctx)
	return err
}

// StartJob starts a job of the given type asynchronously.
//
// It returns the new job's ID, or the Nil ID with a nil error when the
// start was blocked: the type is disabled, already running, or blocked by
// a running dependency. Blocked is a normal outcome, not an error. An
// unregistered job type fails with jobward.ErrNoRunnable.
func (e *Engine) StartJob(ctx context.Context, jobType string) (id.JobID, error) {
	runnable, ok := e.registry.Find(jobType)
	if !ok {
		return id.Nil, fmt.Errorf("%w: %q", jobward.ErrNoRunnable, jobType)
	}

	def := runnable.Definition()
	jobInfo := job.New(id.NewJobID(), def.JobType, e.clock(), e.hostname)

	// Lock first, persist second: the consistency sweep treats a lock
	// without a record as leaked, never the reverse.
	if err := e.locks.Acquire(ctx, def.JobType, jobInfo.ID, def.BlockingJobTypes); err != nil {
		if errors.Is(err, jobward.ErrJobBlocked) || errors.Is(err, jobward.ErrJobTypeDisabled) {
			e.logger.Info("job start blocked",
				slog.String("job_type", def.JobType),
				slog.String("reason", err.Error()),
			)
			return id.Nil, nil
		}
		return id.Nil, err
	}

	if err := e.jobs.CreateOrUpdate(ctx, jobInfo); err != nil {
		e.releaseLock(ctx, def.JobType)
		return id.Nil, fmt.Errorf("jobward/engine: persist job %s: %w", jobInfo.ID, err)
	}

	runner := worker.NewRunner(
		jobInfo,
		runnable,
		e,
		e.extensions,
		e.mw,
		e.config.KeepAliveInterval,
		e.clock,
		e.logger,
	)

	if err := e.pool.Submit(func() {
		// Execution outlives the start request; there is no
		// cooperative cancellation of running jobs.
		runner.Run(context.Background())
	}); err != nil {
		if stopErr := e.StopJob(ctx, jobInfo.ID); stopErr != nil {
			e.logger.Error("failed to finalize undispatched job",
				slog.String("job_id", jobInfo.ID.String()),
				slog.String("error", stopErr.Error()),
			)
		}
		return id.Nil, err
	}

	e.extensions.EmitJobStarted(ctx, jobInfo)
	return jobInfo.ID, nil
}

// StopJob finalizes a job: the type's run-lock is released, Stopped and
// LastUpdated are set, and the last known status is preserved. Unknown
// job IDs are a silent no-op.
func (e *Engine) StopJob(ctx context.Context, jobID id.JobID) error {
	return e.stopJob(ctx, jobID, "")
}

// KillJob stops a job with StatusDead and appends a WARNING message noting
// that the job stopped receiving updates.
func (e *Engine) KillJob(ctx context.Context, jobID id.JobID) error {
	if err := e.stopJob(ctx, jobID, job.StatusDead); err != nil {
		return err
	}

	msg := job.NewMessage(job.LevelWarning,
		"Job didn't receive updates for a while, considering it dead", e.clock())
	if err := e.jobs.AppendMessage(ctx, jobID, msg); err != nil {
		return err
	}

	if jobInfo, err := e.jobs.FindOne(ctx, jobID); err == nil {
		e.extensions.EmitJobDead(ctx, jobInfo)
	}
	return nil
}

func (e *Engine) stopJob(ctx context.Context, jobID id.JobID, status job.Status) error {
	jobInfo, err := e.jobs.FindOne(ctx, jobID)
	if errors.Is(err, jobward.ErrJobNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// Release unconditionally: even a terminal record may still hold the
	// lock after a crash between stop and release.
	if relErr := e.locks.Release(ctx, jobInfo.JobType); relErr != nil {
		return relErr
	}

	now := e.clock()
	jobInfo.Stopped = &now
	jobInfo.LastUpdated = now
	if status != "" {
		jobInfo.Status = status
	}
	return e.jobs.CreateOrUpdate(ctx, jobInfo)
}

// AppendMessage appends one message to the job's log. An ERROR-level
// message additionally forces the job into StatusError and refreshes
// LastUpdated; the append always lands before the status update so the
// message is never lost to a half-applied transition.
func (e *Engine) AppendMessage(ctx context.Context, jobID id.JobID, msg job.Message) error {
	if err := e.jobs.AppendMessage(ctx, jobID, msg); err != nil {
		return err
	}

	if msg.Level == job.LevelError {
		if err := e.jobs.SetStatus(ctx, jobID, job.StatusError); err != nil {
			return err
		}
		if err := e.jobs.SetLastUpdated(ctx, jobID, e.clock()); err != nil {
			return err
		}
	}
	return nil
}

// KeepAlive refreshes the job's last-updated timestamp.
func (e *Engine) KeepAlive(ctx context.Context, jobID id.JobID) error {
	return e.jobs.SetLastUpdated(ctx, jobID, e.clock())
}

// MarkSkipped records that the job had nothing to do and sets
// StatusSkipped.
func (e *Engine) MarkSkipped(ctx context.Context, jobID id.JobID) error {
	now := e.clock()
	msg := job.NewMessage(job.LevelInfo, "Nothing to do, skipping job", now)
	if err := e.jobs.AppendMessage(ctx, jobID, msg); err != nil {
		return err
	}
	if err := e.jobs.SetLastUpdated(ctx, jobID, now); err != nil {
		return err
	}
	return e.jobs.SetStatus(ctx, jobID, job.StatusSkipped)
}

// MarkRestarted records a new execution attempt and sets the status back
// to StatusOK.
func (e *Engine) MarkRestarted(ctx context.Context, jobID id.JobID) error {
	now := e.clock()
	msg := job.NewMessage(job.LevelWarning, "Restarting job", now)
	if err := e.jobs.AppendMessage(ctx, jobID, msg); err != nil {
		return err
	}
	if err := e.jobs.SetLastUpdated(ctx, jobID, now); err != nil {
		return err
	}
	return e.jobs.SetStatus(ctx, jobID, job.StatusOK)
}

// FindJob retrieves a job by ID. Returns jobward.ErrJobNotFound when no
// record exists.
func (e *Engine) FindJob(ctx context.Context, jobID id.JobID) (*job.JobInfo, error) {
	return e.jobs.FindOne(ctx, jobID)
}

// FindJobs returns the latest jobs, newest first, optionally restricted to
// one type. An empty jobType means all types.
func (e *Engine) FindJobs(ctx context.Context, jobType string, limit int) ([]*job.JobInfo, error) {
	if jobType != "" {
		return e.jobs.FindLatestByType(ctx, jobType, limit)
	}
	return e.jobs.FindLatest(ctx, limit)
}

// FindJobsDistinct returns the most recent job of every type.
func (e *Engine) FindJobsDistinct(ctx context.Context) ([]*job.JobInfo, error) {
	return e.jobs.FindLatestDistinct(ctx)
}

// FindJobsWithoutMessages returns all jobs with their message logs left
// out, for cheap listings.
func (e *Engine) FindJobsWithoutMessages(ctx context.Context) ([]*job.JobInfo, error) {
	return e.jobs.FindAllWithoutMessages(ctx)
}

// DeleteJobs removes stopped job records, optionally restricted to one
// type. Running jobs are never deleted.
func (e *Engine) DeleteJobs(ctx context.Context, jobType string) error {
	var (
		jobs []*job.JobInfo
		err  error
	)
	if jobType != "" {
		jobs, err = e.jobs.FindByType(ctx, jobType)
	} else {
		jobs, err = e.jobs.FindAllWithoutMessages(ctx)
	}
	if err != nil {
		return err
	}

	for _, j := range jobs {
		if removeErr := e.jobs.RemoveIfStopped(ctx, j.ID); removeErr != nil {
			return removeErr
		}
	}
	return nil
}

// RunningJobs returns a snapshot of the run-lock registry.
func (e *Engine) RunningJobs(ctx context.Context) ([]runlock.RunningJob, error) {
	return e.locks.RunningJobs(ctx)
}

// DisableJobType administratively prevents a job type from starting.
func (e *Engine) DisableJobType(ctx context.Context, jobType string) error {
	return e.locks.DisableJobType(ctx, jobType)
}

// EnableJobType lifts an administrative disable.
func (e *Engine) EnableJobType(ctx context.Context, jobType string) error {
	return e.locks.EnableJobType(ctx, jobType)
}

// DisabledJobTypes returns the administratively disabled job types.
func (e *Engine) DisabledJobTypes(ctx context.Context) ([]string, error) {
	return e.locks.DisabledJobTypes(ctx)
}

func (e *Engine) releaseLock(ctx context.Context, jobType string) {
	if err := e.locks.Release(ctx, jobType); err != nil {
		e.logger.Error("failed to release run-lock",
			slog.String("job_type", jobType),
			slog.String("error", err.Error()),
		)
	}
}
