package mongo

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jobward/jobward"
	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/runlock"
)

// Acquire atomically marks jobType as running under jobID. All acquisition
// conditions live in the FindOneAndUpdate filter together with the lock
// write, so two concurrent acquisitions of conflicting types can never
// both succeed.
func (s *Store) Acquire(ctx context.Context, jobType string, jobID id.JobID, blockingTypes []string) error {
	filter := bson.M{
		"_id":                 metaDocID,
		"disabled." + jobType: bson.M{"$exists": false},
		"running." + jobType:  bson.M{"$exists": false},
	}
	for _, blocking := range blockingTypes {
		if blocking == jobType {
			continue
		}
		filter["running."+blocking] = bson.M{"$exists": false}
	}

	err := s.meta.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$set": bson.M{"running." + jobType: jobID.String()}},
	).Err()
	if err == nil {
		return nil
	}
	if !isNoDocuments(err) {
		return fmt.Errorf("jobward/mongo: acquire run-lock for %q: %w", jobType, err)
	}

	return s.classifyAcquireFailure(ctx, jobType, blockingTypes)
}

// classifyAcquireFailure reads the meta document after a failed
// conditional write to report which condition blocked it. The read is
// best-effort: the registry may have changed since the write, but the
// acquisition itself already failed atomically.
func (s *Store) classifyAcquireFailure(ctx context.Context, jobType string, blockingTypes []string) error {
	meta, err := s.loadMeta(ctx)
	if err != nil {
		return fmt.Errorf("jobward/mongo: acquire run-lock for %q: %w", jobType, err)
	}

	if meta.Disabled[jobType] {
		return fmt.Errorf("%w: %q is disabled", jobward.ErrJobTypeDisabled, jobType)
	}
	if _, running := meta.Running[jobType]; running {
		return fmt.Errorf("%w: %q is already running", jobward.ErrJobBlocked, jobType)
	}
	for _, blocking := range blockingTypes {
		if _, running := meta.Running[blocking]; running {
			return fmt.Errorf("%w: %q is blocked by running %q", jobward.ErrJobBlocked, jobType, blocking)
		}
	}

	// The conflicting entry disappeared between the write and the read.
	return fmt.Errorf("%w: %q lost the acquisition race", jobward.ErrJobBlocked, jobType)
}

// Release clears the lock entry for jobType. Idempotent: unsetting an
// absent field matches the document and changes nothing.
func (s *Store) Release(ctx context.Context, jobType string) error {
	_, err := s.meta.UpdateOne(ctx,
		bson.M{"_id": metaDocID},
		bson.M{"$unset": bson.M{"running." + jobType: ""}},
	)
	if err != nil {
		return fmt.Errorf("jobward/mongo: release run-lock for %q: %w", jobType, err)
	}
	return nil
}

// RunningJobs returns a snapshot of all current lock entries, sorted by
// job type.
func (s *Store) RunningJobs(ctx context.Context) ([]runlock.RunningJob, error) {
	meta, err := s.loadMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("jobward/mongo: list running jobs: %w", err)
	}

	result := make([]runlock.RunningJob, 0, len(meta.Running))
	for jobType, rawID := range meta.Running {
		jobID, parseErr := id.ParseJobID(rawID)
		if parseErr != nil {
			return nil, fmt.Errorf("jobward/mongo: invalid run-lock entry for %q: %w", jobType, parseErr)
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
	_, err := s.meta.UpdateOne(ctx,
		bson.M{"_id": metaDocID},
		bson.M{"$set": bson.M{"disabled." + jobType: true}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("jobward/mongo: disable job type %q: %w", jobType, err)
	}
	return nil
}

// EnableJobType removes the type from the disabled set. Idempotent.
func (s *Store) EnableJobType(ctx context.Context, jobType string) error {
	_, err := s.meta.UpdateOne(ctx,
		bson.M{"_id": metaDocID},
		bson.M{"$unset": bson.M{"disabled." + jobType: ""}},
	)
	if err != nil {
		return fmt.Errorf("jobward/mongo: enable job type %q: %w", jobType, err)
	}
	return nil
}

// DisabledJobTypes returns the disabled set, sorted.
func (s *Store) DisabledJobTypes(ctx context.Context) ([]string, error) {
	meta, err := s.loadMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("jobward/mongo: list disabled job types: %w", err)
	}

	result := make([]string, 0, len(meta.Disabled))
	for jobType, disabled := range meta.Disabled {
		if disabled {
			result = append(result, jobType)
		}
	}
	sort.Strings(result)
	return result, nil
}

// loadMeta fetches the singleton meta document. A missing document is
// treated as an empty registry so reads work before Migrate has run.
func (s *Store) loadMeta(ctx context.Context) (*metaModel, error) {
	var meta metaModel
	err := s.meta.FindOne(ctx, bson.M{"_id": metaDocID}).Decode(&meta)
	if isNoDocuments(err) {
		return &metaModel{ID: metaDocID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}
