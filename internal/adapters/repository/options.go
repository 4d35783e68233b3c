package repository

import "time"

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithShardCount sets how many independently locked shards students are
// spread over.
func WithShardCount(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithMaxSamplesPerCourse bounds the snapshots kept per course. The oldest
// received snapshot is dropped first. Values <= 0 disable the bound.
func WithMaxSamplesPerCourse(n int) Option {
	return func(s *MemStore) {
		s.maxSamples = n
	}
}

// WithLocation sets the zone for snapshot timestamps without an offset.
func WithLocation(loc *time.Location) Option {
	return func(s *MemStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}
