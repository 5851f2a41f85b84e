// Package memory provides a fully in-memory store.Store implementation.
// Safe for concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jobward/jobward"
	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/job"
	"github.com/jobward/jobward/runlock"
)

// Compile-time interface checks.
var (
	_ job.Store     = (*Store)(nil)
	_ runlock.Store = (*Store)(nil)
)

// Store is an in-memory implementation of store.Store. The single mutex
// makes run-lock acquisition naturally atomic, mirroring the conditional
// write a document store performs.
type Store struct {
	mu sync.RWMutex

	jobs map[string]*job.JobInfo

	// running maps job type → running job ID; disabled is the
	// administratively disabled set.
	running  map[string]id.JobID
	disabled map[string]struct{}
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:     make(map[string]*job.JobInfo),
		running:  make(map[string]id.JobID),
		disabled: make(map[string]struct{}),
	}
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// CreateOrUpdate persists a job record, replacing any previous version.
func (m *Store) CreateOrUpdate(_ context.Context, j *job.JobInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[j.ID.String()] = copyJob(j)
	return nil
}

// FindOne retrieves a job by ID.
func (m *Store) FindOne(_ context.Context, jobID id.JobID) (*job.JobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, jobward.ErrJobNotFound
	}
	return copyJob(j), nil
}

// FindLatest returns the most recently started jobs, newest first.
func (m *Store) FindLatest(_ context.Context, limit int) ([]*job.JobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collect(func(*job.JobInfo) bool { return true }, limit, true), nil
}

// FindLatestByType returns the most recently started jobs of one type.
func (m *Store) FindLatestByType(_ context.Context, jobType string, limit int) ([]*job.JobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collect(func(j *job.JobInfo) bool { return j.JobType == jobType }, limit, true), nil
}

// FindByType returns all jobs of the given type, newest first.
func (m *Store) FindByType(_ context.Context, jobType string) ([]*job.JobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collect(func(j *job.JobInfo) bool { return j.JobType == jobType }, 0, true), nil
}

// FindLatestDistinct returns the most recent job of every type.
func (m *Store) FindLatestDistinct(_ context.Context) ([]*job.JobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[string]*job.JobInfo)
	for _, j := range m.jobs {
		if cur, ok := latest[j.JobType]; !ok || j.Started.After(cur.Started) {
			latest[j.JobType] = j
		}
	}

	result := make([]*job.JobInfo, 0, len(latest))
	for _, j := range latest {
		result = append(result, copyJob(j))
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].Started.After(result[k].Started)
	})
	return result, nil
}

// FindAllWithoutMessages returns all jobs with empty message logs.
func (m *Store) FindAllWithoutMessages(_ context.Context) ([]*job.JobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := m.collect(func(*job.JobInfo) bool { return true }, 0, true)
	for _, j := range result {
		j.Messages = nil
	}
	return result, nil
}

// FindRunningWithoutUpdateSince returns non-terminal jobs whose
// LastUpdated is strictly before the cutoff.
func (m *Store) FindRunningWithoutUpdateSince(_ context.Context, cutoff time.Time) ([]*job.JobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collect(func(j *job.JobInfo) bool {
		return !j.IsStopped() && j.LastUpdated.Before(cutoff)
	}, 0, false), nil
}

// AppendMessage appends one entry to the job's message log.
// Unknown IDs are a silent no-op.
func (m *Store) AppendMessage(_ context.Context, jobID id.JobID, msg job.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[jobID.String()]; ok {
		j.Messages = append(j.Messages, msg)
	}
	return nil
}

// SetStatus updates the job's status field. Unknown IDs are a silent no-op.
func (m *Store) SetStatus(_ context.Context, jobID id.JobID, status job.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[jobID.String()]; ok {
		j.Status = status
	}
	return nil
}

// SetLastUpdated refreshes the job's last-updated timestamp.
// Unknown IDs are a silent no-op.
func (m *Store) SetLastUpdated(_ context.Context, jobID id.JobID, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[jobID.String()]; ok {
		j.LastUpdated = t
	}
	return nil
}

// RemoveIfStopped deletes the record only when it is terminal.
func (m *Store) RemoveIfStopped(_ context.Context, jobID id.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[jobID.String()]; ok && j.IsStopped() {
		delete(m.jobs, jobID.String())
	}
	return nil
}

// ──────────────────────────────────────────────────
// Run-Lock Store
// ──────────────────────────────────────────────────

// Acquire atomically marks jobType as running under jobID.
func (m *Store) Acquire(_ context.Context, jobType string, jobID id.JobID, blockingTypes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, disabled := m.disabled[jobType]; disabled {
		return fmt.Errorf("%w: %q is disabled", jobward.ErrJobTypeDisabled, jobType)
	}
	if _, running := m.running[jobType]; running {
		return fmt.Errorf("%w: %q is already running", jobward.ErrJobBlocked, jobType)
	}
	for _, blocking := range blockingTypes {
		if _, running := m.running[blocking]; running {
			return fmt.Errorf("%w: %q is blocked by running %q", jobward.ErrJobBlocked, jobType, blocking)
		}
	}

	m.running[jobType] = jobID
	return nil
}

// Release clears the lock entry for jobType. Idempotent.
func (m *Store) Release(_ context.Context, jobType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.running, jobType)
	return nil
}

// RunningJobs returns a snapshot of all current lock entries.
func (m *Store) RunningJobs(_ context.Context) ([]runlock.RunningJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]runlock.RunningJob, 0, len(m.running))
	for jobType, jobID := range m.running {
		result = append(result, runlock.RunningJob{JobType: jobType, JobID: jobID})
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].JobType < result[k].JobType
	})
	return result, nil
}

// DisableJobType adds the type to the disabled set.
func (m *Store) DisableJobType(_ context.Context, jobType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.disabled[jobType] = struct{}{}
	return nil
}

// EnableJobType removes the type from the disabled set. Idempotent.
func (m *Store) EnableJobType(_ context.Context, jobType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.disabled, jobType)
	return nil
}

// DisabledJobTypes returns the disabled set.
func (m *Store) DisabledJobTypes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, 0, len(m.disabled))
	for jobType := range m.disabled {
		result = append(result, jobType)
	}
	sort.Strings(result)
	return result, nil
}

// ──────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────

// collect returns copies of all jobs matching the filter, newest first
// when sorted is true, up to limit (zero means no limit).
// Callers must hold at least a read lock.
func (m *Store) collect(match func(*job.JobInfo) bool, limit int, sorted bool) []*job.JobInfo {
	result := make([]*job.JobInfo, 0, len(m.jobs))
	for _, j := range m.jobs {
		if match(j) {
			result = append(result, copyJob(j))
		}
	}
	if sorted {
		sort.Slice(result, func(i, k int) bool {
			return result[i].Started.After(result[k].Started)
		})
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// copyJob returns a deep copy so callers can mutate without racing with
// the store.
func copyJob(j *job.JobInfo) *job.JobInfo {
	cp := *j
	if j.Stopped != nil {
		t := *j.Stopped
		cp.Stopped = &t
	}
	if j.Messages != nil {
		cp.Messages = append([]job.Message(nil), j.Messages...)
	}
	return &cp
}
