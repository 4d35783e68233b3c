package api

import "github.com/fausterrex/gradegoal/pkg/logger"

// Option configures a Server.
type Option func(*options)

type options struct {
	rps   float64
	burst int
	log   logger.Logger
}

// WithRateLimit shapes POST /events with a token bucket. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		o.burst = burst
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
