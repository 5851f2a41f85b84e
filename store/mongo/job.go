package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jobward/jobward"
	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/job"
)

// CreateOrUpdate persists a job record, replacing any previous version.
func (s *Store) CreateOrUpdate(ctx context.Context, j *job.JobInfo) error {
	model := toJobModel(j)

	_, err := s.jobs.ReplaceOne(ctx,
		bson.M{"_id": model.ID},
		model,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("jobward/mongo: upsert job %s: %w", model.ID, err)
	}
	return nil
}

// FindOne retrieves a job by ID.
func (s *Store) FindOne(ctx context.Context, jobID id.JobID) (*job.JobInfo, error) {
	var model jobModel
	err := s.jobs.FindOne(ctx, bson.M{"_id": jobID.String()}).Decode(&model)
	if isNoDocuments(err) {
		return nil, jobward.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobward/mongo: find job %s: %w", jobID, err)
	}
	return fromJobModel(&model)
}

// FindLatest returns the most recently started jobs, newest first.
func (s *Store) FindLatest(ctx context.Context, limit int) ([]*job.JobInfo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.findJobs(ctx, bson.M{}, opts)
}

// FindLatestByType returns the most recently started jobs of one type.
func (s *Store) FindLatestByType(ctx context.Context, jobType string, limit int) ([]*job.JobInfo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.findJobs(ctx, bson.M{"job_type": jobType}, opts)
}

// FindByType returns all jobs of the given type, newest first.
func (s *Store) FindByType(ctx context.Context, jobType string) ([]*job.JobInfo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started", Value: -1}})
	return s.findJobs(ctx, bson.M{"job_type": jobType}, opts)
}

// FindLatestDistinct returns the most recent job of every type, newest
// first. Implemented as a sort/group/replaceRoot pipeline so the whole
// query runs server-side.
func (s *Store) FindLatestDistinct(ctx context.Context) ([]*job.JobInfo, error) {
	pipeline := mongod.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "started", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$job_type"},
			{Key: "doc", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
		}}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$doc"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "started", Value: -1}}}},
	}

	cursor, err := s.jobs.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("jobward/mongo: aggregate latest distinct: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeJobs(ctx, cursor)
}

// FindAllWithoutMessages returns all jobs with the message log projected
// away, newest first.
func (s *Store) FindAllWithoutMessages(ctx context.Context) ([]*job.JobInfo, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started", Value: -1}}).
		SetProjection(bson.M{"messages": 0})
	return s.findJobs(ctx, bson.M{}, opts)
}

// FindRunningWithoutUpdateSince returns non-terminal jobs whose
// last_updated is strictly before the cutoff.
func (s *Store) FindRunningWithoutUpdateSince(ctx context.Context, cutoff time.Time) ([]*job.JobInfo, error) {
	filter := bson.M{
		"stopped":      bson.M{"$exists": false},
		"last_updated": bson.M{"$lt": cutoff},
	}
	return s.findJobs(ctx, filter, options.Find())
}

// AppendMessage appends one entry to the job's message log. Unknown IDs
// are a silent no-op.
func (s *Store) AppendMessage(ctx context.Context, jobID id.JobID, msg job.Message) error {
	_, err := s.jobs.UpdateOne(ctx,
		bson.M{"_id": jobID.String()},
		bson.M{"$push": bson.M{"messages": toMessageModel(msg)}},
	)
	if err != nil {
		return fmt.Errorf("jobward/mongo: append message to job %s: %w", jobID, err)
	}
	return nil
}

// SetStatus updates the job's status field. Unknown IDs are a silent no-op.
func (s *Store) SetStatus(ctx context.Context, jobID id.JobID, status job.Status) error {
	_, err := s.jobs.UpdateOne(ctx,
		bson.M{"_id": jobID.String()},
		bson.M{"$set": bson.M{"status": string(status)}},
	)
	if err != nil {
		return fmt.Errorf("jobward/mongo: set status of job %s: %w", jobID, err)
	}
	return nil
}

// SetLastUpdated refreshes the job's last-updated timestamp. Unknown IDs
// are a silent no-op.
func (s *Store) SetLastUpdated(ctx context.Context, jobID id.JobID, t time.Time) error {
	_, err := s.jobs.UpdateOne(ctx,
		bson.M{"_id": jobID.String()},
		bson.M{"$set": bson.M{"last_updated": t}},
	)
	if err != nil {
		return fmt.Errorf("jobward/mongo: set last updated of job %s: %w", jobID, err)
	}
	return nil
}

// RemoveIfStopped deletes the record only when it is terminal. The
// stopped condition lives in the delete filter, so a record that is
// still running is never removed, regardless of interleaving.
func (s *Store) RemoveIfStopped(ctx context.Context, jobID id.JobID) error {
	_, err := s.jobs.DeleteOne(ctx, bson.M{
		"_id":     jobID.String(),
		"stopped": bson.M{"$exists": true},
	})
	if err != nil {
		return fmt.Errorf("jobward/mongo: remove job %s: %w", jobID, err)
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────

func (s *Store) findJobs(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*job.JobInfo, error) {
	cursor, err := s.jobs.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("jobward/mongo: find jobs: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeJobs(ctx, cursor)
}

func decodeJobs(ctx context.Context, cursor *mongod.Cursor) ([]*job.JobInfo, error) {
	var models []jobModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("jobward/mongo: decode jobs: %w", err)
	}

	result := make([]*job.JobInfo, 0, len(models))
	for i := range models {
		j, err := fromJobModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	return result, nil
}
