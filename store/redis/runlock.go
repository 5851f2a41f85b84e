package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/jobward/jobward"
	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/runlock"
)

// acquireScript checks the disabled set, the caller's own type, and every
// blocking type before writing the lock entry. Running as a script makes
// the whole sequence atomic on the server.
//
// KEYS[1] running hash, KEYS[2] disabled hash.
// ARGV[1] job type, ARGV[2] job ID, ARGV[3..] blocking types.
// Returns "OK", "DISABLED", "SELF", or the name of the blocking type.
var acquireScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[2], ARGV[1]) == 1 then
  return 'DISABLED'
end
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
  return 'SELF'
end
for i = 3, #ARGV do
  if redis.call('HEXISTS', KEYS[1], ARGV[i]) == 1 then
    return ARGV[i]
  end
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 'OK'
`)

// Acquire atomically marks jobType as running under jobID.
func (s *Store) Acquire(ctx context.Context, jobType string, jobID id.JobID, blockingTypes []string) error {
	args := make([]any, 0, 2+len(blockingTypes))
	args = append(args, jobType, jobID.String())
	for _, blocking := range blockingTypes {
		if blocking == jobType {
			continue
		}
		args = append(args, blocking)
	}

	verdict, err := acquireScript.Run(ctx, s.client, []string{keyRunning, keyDisabled}, args...).Text()
	if err != nil {
		return fmt.Errorf("jobward/redis: acquire run-lock for %q: %w", jobType, err)
	}

	switch verdict {
	case "OK":
		return nil
	case "DISABLED":
		return fmt.Errorf("%w: %q is disabled", jobward.ErrJobTypeDisabled, jobType)
	case "SELF":
		return fmt.Errorf("%w: %q is already running", jobward.ErrJobBlocked, jobType)
	default:
		return fmt.Errorf("%w: %q is blocked by running %q", jobward.ErrJobBlocked, jobType, verdict)
	}
}

// Release clears the lock entry for jobType. Idempotent.
func (s *Store) Release(ctx context.Context, jobType string) error {
	if err := s.client.HDel(ctx, keyRunning, jobType).Err(); err != nil {
		return fmt.Errorf("jobward/redis: release run-lock for %q: %w", jobType, err)
	}
	return nil
}

// RunningJobs returns a snapshot of all current lock entries, sorted by
// job type.
func (s *Store) RunningJobs(ctx context.Context) ([]runlock.RunningJob, error) {
	entries, err := s.client.HGetAll(ctx, keyRunning).Result()
	if err != nil {
		return nil, fmt.Errorf("jobward/redis: list running jobs: %w", err)
	}

	result := make([]runlock.RunningJob, 0, len(entries))
	for jobType, rawID := range entries {
		jobID, parseErr := id.ParseJobID(rawID)
		if parseErr != nil {
			return nil, fmt.Errorf("jobward/redis: invalid run-lock entry for %q: %w", jobType, parseErr)
		}
		result = append(result, runlock.RunningJob{JobType: jobType, JobID: jobID})
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].JobType < result[k].JobType
	})
	return result, nil
}

// DisableJobType adds the type to the disabled set.
func (s *Store) DisableJobType(ctx context.Context, jobType string) error {
	if err := s.client.HSet(ctx, keyDisabled, jobType, "1").Err(); err != nil {
		return fmt.Errorf("jobward/redis: disable job type %q: %w", jobType, err)
	}
	return nil
}

// EnableJobType removes the type from the disabled set. Idempotent.
func (s *Store) EnableJobType(ctx context.Context, jobType string) error {
	if err := s.client.HDel(ctx, keyDisabled, jobType).Err(); err != nil {
		return fmt.Errorf("jobward/redis: enable job type %q: %w", jobType, err)
	}
	return nil
}

// DisabledJobTypes returns the disabled set, sorted.
func (s *Store) DisabledJobTypes(ctx context.Context) ([]string, error) {
	types, err := s.client.HKeys(ctx, keyDisabled).Result()
	if err != nil {
		return nil, fmt.Errorf("jobward/redis: list disabled job types: %w", err)
	}
	sort.Strings(types)
	return types, nil
}
