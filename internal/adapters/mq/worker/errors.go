package worker

import "errors"

// Sentinel errors for worker lifecycle.
var (
	ErrStopped = errors.New("worker stopped")
)
