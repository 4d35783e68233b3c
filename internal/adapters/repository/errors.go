package repository

import "errors"

// Sentinel errors for the grade store.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidEvent = errors.New("invalid grade event")
	ErrInvalidGoal  = errors.New("invalid goal")
)
