// Package progression turns scattered grade snapshots into a week-bucketed
// series suitable for trend charts.
package progression

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/fausterrex/gradegoal/internal/domain/gpa"
	"github.com/fausterrex/gradegoal/internal/domain/model"
)

// Point is one week of the emitted series.
type Point struct {
	WeekLabel   string    `json:"week_label"`
	WeekStart   time.Time `json:"week_start"`
	Value       float64   `json:"value"`
	SampleCount int       `json:"sample_count"`
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLocation sets the time zone used for week boundaries and for
// timestamps that carry no offset.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// Aggregator buckets samples into Monday-aligned weeks. It holds no mutable
// state and is safe for concurrent use.
type Aggregator struct {
	loc *time.Location
}

// NewAggregator creates an Aggregator. Weeks are computed in UTC unless
// WithLocation is given.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{loc: time.UTC}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAggregator = NewAggregator()

// ToWeeklySeries aggregates samples with the UTC aggregator.
func ToWeeklySeries(samples []model.ScoreSample, current float64) []Point {
	return defaultAggregator.Weekly(samples, current)
}

// dated is a sample with its parsed timestamps.
type dated struct {
	at      time.Time // chronological position
	recency time.Time // which sample of a week is freshest
	value   float64
	pct     float64
}

type bucket struct {
	start   time.Time
	samples []dated
}

// Weekly returns one point per week that has at least one datable sample, in
// ascending order and labelled W1..Wn. The last point always carries current
// (clamped to the GPA scale) rather than its sampled value. Samples without a
// parseable timestamp are dropped. The result does not depend on input order.
func (a *Aggregator) Weekly(samples []model.ScoreSample, current float64) []Point {
	ds := a.date(samples)
	if len(ds) == 0 {
		return []Point{}
	}
	sort.Slice(ds, func(i, j int) bool { return before(ds[i], ds[j]) })

	buckets := a.bucketize(ds)
	points := make([]Point, 0, len(buckets))
	for i, b := range buckets {
		points = append(points, Point{
			WeekLabel:   "W" + strconv.Itoa(i+1),
			WeekStart:   b.start,
			Value:       b.representative(),
			SampleCount: len(b.samples),
		})
	}
	points[len(points)-1].Value = gpa.Clamp(current)
	return points
}

// Latest returns the value of the most recently calculated datable sample,
// for callers that have no live grade of their own.
func (a *Aggregator) Latest(samples []model.ScoreSample) (float64, bool) {
	ds := a.date(samples)
	if len(ds) == 0 {
		return 0, false
	}
	sort.Slice(ds, func(i, j int) bool { return before(ds[i], ds[j]) })
	return bucket{samples: ds}.representative(), true
}

// date parses sample timestamps, dropping samples that have none.
func (a *Aggregator) date(samples []model.ScoreSample) []dated {
	out := make([]dated, 0, len(samples))
	for _, s := range samples {
		at, ok := a.firstParseable(s.DueDate, s.CreatedAt, s.CalculatedAt)
		if !ok {
			continue
		}
		recency, ok := a.firstParseable(s.CalculatedAt, s.CreatedAt)
		if !ok {
			recency = at
		}
		d := dated{at: at, recency: recency, value: sampleValue(s), pct: math.NaN()}
		if s.PercentageScore.Valid {
			d.pct = s.PercentageScore.Float64
		}
		out = append(out, d)
	}
	return out
}

func (a *Aggregator) firstParseable(values ...string) (time.Time, bool) {
	for _, v := range values {
		if t, ok := model.ParseTimestamp(v, a.loc); ok {
			return t.In(a.loc), true
		}
	}
	return time.Time{}, false
}

// bucketize groups chronologically sorted samples by week start.
func (a *Aggregator) bucketize(ds []dated) []bucket {
	var out []bucket
	for _, d := range ds {
		start := WeekStart(d.at)
		if n := len(out); n > 0 && out[n-1].start.Equal(start) {
			out[n-1].samples = append(out[n-1].samples, d)
			continue
		}
		out = append(out, bucket{start: start, samples: []dated{d}})
	}
	return out
}

// representative returns the value of the most recently calculated sample.
// On equal recency the later sample in chronological order wins.
func (b bucket) representative() float64 {
	best := b.samples[0]
	for _, d := range b.samples[1:] {
		if !d.recency.Before(best.recency) {
			best = d
		}
	}
	return gpa.Clamp(best.value)
}

// WeekStart returns midnight of the Monday on or before t, in t's location.
func WeekStart(t time.Time) time.Time {
	offset := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// sampleValue prefers the GPA-scale value and falls back to converting the
// percentage score.
func sampleValue(s model.ScoreSample) float64 {
	if s.Value.Valid && !math.IsNaN(s.Value.Float64) {
		return s.Value.Float64
	}
	if s.PercentageScore.Valid {
		return gpa.FromPercentage(s.PercentageScore.Float64)
	}
	return 0
}

// before is a total order over dated samples so sorting is input-order independent.
func before(x, y dated) bool {
	if !x.at.Equal(y.at) {
		return x.at.Before(y.at)
	}
	if !x.recency.Equal(y.recency) {
		return x.recency.Before(y.recency)
	}
	if x.value != y.value {
		return x.value < y.value
	}
	return lessNaN(x.pct, y.pct)
}

// lessNaN orders NaN first so absent percentages sort deterministically.
func lessNaN(x, y float64) bool {
	switch {
	case math.IsNaN(x):
		return !math.IsNaN(y)
	case math.IsNaN(y):
		return false
	default:
		return x < y
	}
}
