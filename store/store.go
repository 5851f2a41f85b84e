// Package store defines the aggregate persistence interface. Job records
// and the run-lock registry each define their own store contract; the
// composite Store composes them. Backends: MongoDB, Redis, and Memory.
package store

import (
	"context"

	"github.com/jobward/jobward/job"
	"github.com/jobward/jobward/runlock"
)

// Store is the aggregate persistence interface.
// A single backend (mongo, redis, memory) implements all of it.
type Store interface {
	job.Store
	runlock.Store

	// Migrate prepares indexes and the registry meta documents.
	Migrate(ctx context.Context) error

	// Ping checks store connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
