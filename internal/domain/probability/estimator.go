package probability

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/model"
)

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithClock overrides the time source used for deadlines.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		if now != nil {
			e.now = now
		}
	}
}

// Estimator evaluates Achievement against a clock.
type Estimator struct {
	now func() time.Time
}

// NewEstimator creates an Estimator using the wall clock by default.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate runs Achievement at the estimator's current time.
func (e *Estimator) Estimate(in Input) float64 {
	return Achievement(in, e.now())
}

// Assess builds a Report for goal at the estimator's current time.
func (e *Estimator) Assess(goal model.Goal, completionPct null.Float64) Report {
	return Assess(goal, completionPct, e.now())
}
