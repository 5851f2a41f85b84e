package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jobward/jobward/job"
	"github.com/jobward/jobward/runlock"
)

// Collection name constants.
const (
	colJobInfo = "jobinfo"
	colJobMeta = "jobmetadata"
)

// metaDocID is the _id of the singleton meta document holding the
// run-lock registry and the disabled-types set.
const metaDocID = "JOB_META"

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ job.Store     = (*Store)(nil)
	_ runlock.Store = (*Store)(nil)
)

// Store is a MongoDB implementation of store.Store. The caller owns the
// client lifecycle; Store never closes it.
type Store struct {
	jobs   *mongod.Collection
	meta   *mongod.Collection
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new MongoDB store on the given database.
func New(db *mongod.Database, opts ...Option) *Store {
	s := &Store{
		jobs:   db.Collection(colJobInfo),
		meta:   db.Collection(colJobMeta),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the jobinfo indexes and the singleton meta document.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := []mongod.IndexModel{
		{Keys: bson.D{{Key: "job_type", Value: 1}}},
		{Keys: bson.D{{Key: "started", Value: -1}}},
		// Reaper index: non-terminal jobs by staleness.
		{Keys: bson.D{
			{Key: "stopped", Value: 1},
			{Key: "last_updated", Value: 1},
		}},
	}
	if _, err := s.jobs.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("jobward/mongo: migrate jobinfo indexes: %w", err)
	}

	_, err := s.meta.UpdateOne(ctx,
		bson.M{"_id": metaDocID},
		bson.M{"$setOnInsert": bson.M{"_id": metaDocID}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("jobward/mongo: init meta document: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.jobs.Database().Client().Ping(ctx, nil)
}

// Close is a no-op because the caller owns the client lifecycle.
func (s *Store) Close() error {
	return nil
}

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}
