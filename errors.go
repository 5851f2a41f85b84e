package jobward

import "errors"

var (
	// Store errors.
	ErrNoStore = errors.New("jobward: no store configured")

	// Not found errors.
	ErrJobNotFound = errors.New("jobward: job not found")
	ErrNoRunnable  = errors.New("jobward: no runnable registered for job type")

	// Blocked outcomes. StartJob absorbs these and reports "no job
	// started"; they are exported so store adapters can signal the reason.
	ErrJobBlocked      = errors.New("jobward: job type blocked")
	ErrJobTypeDisabled = errors.New("jobward: job type disabled")

	// Pool errors.
	ErrPoolStopped   = errors.New("jobward: worker pool stopped")
	ErrPoolSaturated = errors.New("jobward: worker pool queue full")
)
