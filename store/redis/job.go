package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobward/jobward"
	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/job"
)

// Hash field names of a job record.
const (
	fieldJobType     = "job_type"
	fieldStarted     = "started"
	fieldLastUpdated = "last_updated"
	fieldStopped     = "stopped"
	fieldStatus      = "status"
	fieldHostname    = "hostname"
)

// timeLayout is the wire format for timestamps in job hashes.
const timeLayout = time.RFC3339Nano

// CreateOrUpdate persists a job record, replacing any previous version
// including its message log.
func (s *Store) CreateOrUpdate(ctx context.Context, j *job.JobInfo) error {
	key := jobKey(j.ID.String())

	fields := map[string]any{
		fieldJobType:     j.JobType,
		fieldStarted:     j.Started.Format(timeLayout),
		fieldLastUpdated: j.LastUpdated.Format(timeLayout),
		fieldStatus:      string(j.Status),
		fieldHostname:    j.Hostname,
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if j.Stopped != nil {
		pipe.HSet(ctx, key, fieldStopped, j.Stopped.Format(timeLayout))
	} else {
		pipe.HDel(ctx, key, fieldStopped)
	}
	pipe.Del(ctx, messagesKey(j.ID.String()))
	for _, msg := range j.Messages {
		encoded, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("jobward/redis: encode message: %w", err)
		}
		pipe.RPush(ctx, messagesKey(j.ID.String()), encoded)
	}
	pipe.SAdd(ctx, keyJobIDs, j.ID.String())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("jobward/redis: upsert job %s: %w", j.ID, err)
	}
	return nil
}

// FindOne retrieves a job by ID.
func (s *Store) FindOne(ctx context.Context, jobID id.JobID) (*job.JobInfo, error) {
	j, err := s.readJob(ctx, jobID.String(), true)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, jobward.ErrJobNotFound
	}
	return j, nil
}

// FindLatest returns the most recently started jobs, newest first.
func (s *Store) FindLatest(ctx context.Context, limit int) ([]*job.JobInfo, error) {
	jobs, err := s.scanJobs(ctx, func(*job.JobInfo) bool { return true }, true)
	if err != nil {
		return nil, err
	}
	return limitJobs(jobs, limit), nil
}

// FindLatestByType returns the most recently started jobs of one type.
func (s *Store) FindLatestByType(ctx context.Context, jobType string, limit int) ([]*job.JobInfo, error) {
	jobs, err := s.scanJobs(ctx, func(j *job.JobInfo) bool { return j.JobType == jobType }, true)
	if err != nil {
		return nil, err
	}
	return limitJobs(jobs, limit), nil
}

// FindByType returns all jobs of the given type, newest first.
func (s *Store) FindByType(ctx context.Context, jobType string) ([]*job.JobInfo, error) {
	return s.scanJobs(ctx, func(j *job.JobInfo) bool { return j.JobType == jobType }, true)
}

// FindLatestDistinct returns the most recent job of every type, newest
// first.
func (s *Store) FindLatestDistinct(ctx context.Context) ([]*job.JobInfo, error) {
	jobs, err := s.scanJobs(ctx, func(*job.JobInfo) bool { return true }, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(jobs))
	result := jobs[:0]
	for _, j := range jobs {
		if _, ok := seen[j.JobType]; ok {
			continue
		}
		seen[j.JobType] = struct{}{}
		result = append(result, j)
	}
	return result, nil
}

// FindAllWithoutMessages returns all jobs without loading message logs,
// newest first.
func (s *Store) FindAllWithoutMessages(ctx context.Context) ([]*job.JobInfo, error) {
	return s.scanJobsWithMessages(ctx, func(*job.JobInfo) bool { return true }, true, false)
}

// FindRunningWithoutUpdateSince returns non-terminal jobs whose
// LastUpdated is strictly before the cutoff.
func (s *Store) FindRunningWithoutUpdateSince(ctx context.Context, cutoff time.Time) ([]*job.JobInfo, error) {
	return s.scanJobs(ctx, func(j *job.JobInfo) bool {
		return !j.IsStopped() && j.LastUpdated.Before(cutoff)
	}, false)
}

// AppendMessage appends one entry to the job's message log. Unknown IDs
// are a silent no-op.
func (s *Store) AppendMessage(ctx context.Context, jobID id.JobID, msg job.Message) error {
	exists, err := s.client.Exists(ctx, jobKey(jobID.String())).Result()
	if err != nil {
		return fmt.Errorf("jobward/redis: append message to job %s: %w", jobID, err)
	}
	if exists == 0 {
		return nil
	}

	encoded, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("jobward/redis: encode message: %w", err)
	}
	if err := s.client.RPush(ctx, messagesKey(jobID.String()), encoded).Err(); err != nil {
		return fmt.Errorf("jobward/redis: append message to job %s: %w", jobID, err)
	}
	return nil
}

// SetStatus updates the job's status field. Unknown IDs are a silent no-op.
func (s *Store) SetStatus(ctx context.Context, jobID id.JobID, status job.Status) error {
	return s.setField(ctx, jobID, fieldStatus, string(status))
}

// SetLastUpdated refreshes the job's last-updated timestamp. Unknown IDs
// are a silent no-op.
func (s *Store) SetLastUpdated(ctx context.Context, jobID id.JobID, t time.Time) error {
	return s.setField(ctx, jobID, fieldLastUpdated, t.Format(timeLayout))
}

// RemoveIfStopped deletes the record only when it is terminal.
func (s *Store) RemoveIfStopped(ctx context.Context, jobID id.JobID) error {
	key := jobID.String()

	// A missing stopped field means the record is still running or gone.
	_, err := s.client.HGet(ctx, jobKey(key), fieldStopped).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("jobward/redis: remove job %s: %w", jobID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, jobKey(key), messagesKey(key))
	pipe.SRem(ctx, keyJobIDs, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("jobward/redis: remove job %s: %w", jobID, err)
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────

// setField writes one hash field if the record exists.
func (s *Store) setField(ctx context.Context, jobID id.JobID, field, value string) error {
	exists, err := s.client.Exists(ctx, jobKey(jobID.String())).Result()
	if err != nil {
		return fmt.Errorf("jobward/redis: update job %s: %w", jobID, err)
	}
	if exists == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, jobKey(jobID.String()), field, value).Err(); err != nil {
		return fmt.Errorf("jobward/redis: update job %s: %w", jobID, err)
	}
	return nil
}

// readJob loads one record, nil when missing.
func (s *Store) readJob(ctx context.Context, rawID string, loadMessages bool) (*job.JobInfo, error) {
	fields, err := s.client.HGetAll(ctx, jobKey(rawID)).Result()
	if err != nil {
		return nil, fmt.Errorf("jobward/redis: load job %s: %w", rawID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	jobID, err := id.ParseJobID(rawID)
	if err != nil {
		return nil, fmt.Errorf("jobward/redis: invalid job id %q: %w", rawID, err)
	}

	started, err := parseTime(fields[fieldStarted])
	if err != nil {
		return nil, fmt.Errorf("jobward/redis: job %s: %w", rawID, err)
	}
	lastUpdated, err := parseTime(fields[fieldLastUpdated])
	if err != nil {
		return nil, fmt.Errorf("jobward/redis: job %s: %w", rawID, err)
	}

	j := &job.JobInfo{
		ID:          jobID,
		JobType:     fields[fieldJobType],
		Started:     started,
		LastUpdated: lastUpdated,
		Status:      job.Status(fields[fieldStatus]),
		Hostname:    fields[fieldHostname],
	}
	if raw, ok := fields[fieldStopped]; ok {
		stopped, parseErr := parseTime(raw)
		if parseErr != nil {
			return nil, fmt.Errorf("jobward/redis: job %s: %w", rawID, parseErr)
		}
		j.Stopped = &stopped
	}

	if loadMessages {
		entries, lrErr := s.client.LRange(ctx, messagesKey(rawID), 0, -1).Result()
		if lrErr != nil {
			return nil, fmt.Errorf("jobward/redis: load messages of job %s: %w", rawID, lrErr)
		}
		for _, entry := range entries {
			var msg job.Message
			if umErr := json.Unmarshal([]byte(entry), &msg); umErr != nil {
				return nil, fmt.Errorf("jobward/redis: decode message of job %s: %w", rawID, umErr)
			}
			j.Messages = append(j.Messages, msg)
		}
	}
	return j, nil
}

// scanJobs loads every record matching the filter, with messages.
func (s *Store) scanJobs(ctx context.Context, match func(*job.JobInfo) bool, sorted bool) ([]*job.JobInfo, error) {
	return s.scanJobsWithMessages(ctx, match, sorted, true)
}

func (s *Store) scanJobsWithMessages(ctx context.Context, match func(*job.JobInfo) bool, sorted, loadMessages bool) ([]*job.JobInfo, error) {
	ids, err := s.client.SMembers(ctx, keyJobIDs).Result()
	if err != nil {
		return nil, fmt.Errorf("jobward/redis: scan jobs: %w", err)
	}

	result := make([]*job.JobInfo, 0, len(ids))
	for _, rawID := range ids {
		j, readErr := s.readJob(ctx, rawID, loadMessages)
		if readErr != nil {
			return nil, readErr
		}
		if j == nil {
			// Index entry without a record, left by a partial delete.
			continue
		}
		if match(j) {
			result = append(result, j)
		}
	}
	if sorted {
		sort.Slice(result, func(i, k int) bool {
			return result[i].Started.After(result[k].Started)
		})
	}
	return result, nil
}

func limitJobs(jobs []*job.JobInfo, limit int) []*job.JobInfo {
	if limit > 0 && len(jobs) > limit {
		return jobs[:limit]
	}
	return jobs
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t, nil
}
