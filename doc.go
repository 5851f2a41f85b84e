// Package jobward provides a lightweight job orchestration layer for
// background tasks: it starts, tracks, locks, and reaps named job types,
// persisting job state and run-locks in a document store.
//
// Jobward is designed as a library, not a service. Import it, configure a
// store, register Runnables for your job types, and trigger them through
// the engine. Cross-instance mutual exclusion is delegated entirely to an
// atomic conditional write on the store's run-lock registry, so any number
// of process instances can share one store safely.
//
// # Quick Start
//
//	eng := engine.New(memory.New(), registry,
//	    engine.WithLogger(slog.Default()),
//	)
//	jobID, err := eng.StartJob(ctx, "import")
//
// A zero jobID with a nil error means the start was blocked: the type is
// disabled, already running, or blocked by a running dependency.
//
// # Architecture
//
// Each subsystem lives in its own package: job records and definitions in
// job, the run-lock registry contract in runlock, execution in worker,
// cross-cutting wrappers in middleware, lifecycle hooks in ext. A single
// backend (mongo, redis, memory) implements the composite store.Store.
//
// All job IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package jobward
