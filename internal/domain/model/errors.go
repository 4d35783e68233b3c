package model

import "errors"

// Sentinel kinds for model parsing errors.
var (
	ErrUnknownGoalType = errors.New("unknown goal type")
)
