package jobward

import "time"

// Config holds configuration for the job engine.
type Config struct {
	// Concurrency is the maximum number of jobs executed concurrently.
	Concurrency int

	// QueueDepth is the number of dispatched jobs that may wait for a
	// free worker before StartJob reports saturation.
	QueueDepth int

	// KeepAliveInterval is how often running jobs refresh their
	// last-updated timestamp.
	KeepAliveInterval time.Duration

	// StaleJobThreshold is how long a running job may go without a
	// keep-alive before the reaper marks it dead.
	StaleJobThreshold time.Duration

	// ReapInterval is how often the reaper looks for stale jobs.
	// A zero value disables the periodic reaper.
	ReapInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:       10,
		QueueDepth:        32,
		KeepAliveInterval: 20 * time.Second,
		StaleJobThreshold: 60 * time.Second,
		ReapInterval:      time.Minute,
		ShutdownTimeout:   30 * time.Second,
	}
}
