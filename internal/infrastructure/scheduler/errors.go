package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when submitting a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue cannot accept more work
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrInvalidConfig is returned when scheduler configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
