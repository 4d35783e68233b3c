package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/gpa"
	"github.com/fausterrex/gradegoal/internal/domain/model"
	"github.com/fausterrex/gradegoal/pkg/metrics"
)

const (
	defaultShardCount = 16
	defaultMaxSamples = 512
)

type course struct {
	samples    []model.ScoreSample
	categories []*model.Category
	catIndex   map[string]int
	current    null.Float64
	currentAt  time.Time
	updatedAt  time.Time
}

type student struct {
	courses map[string]*course
	goals   map[string]model.Goal
}

type shard struct {
	mu       sync.RWMutex
	students map[string]*student
}

// MemStore is a sharded in-memory Store. Students hash to a shard, so
// writes for different students rarely contend.
type MemStore struct {
	shards     []*shard
	shardCount int
	maxSamples int
	loc        *time.Location

	students atomic.Int64
	courses  atomic.Int64
	goals    atomic.Int64
	samples  atomic.Int64
}

// NewMemStore creates an empty store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		shardCount: defaultShardCount,
		maxSamples: defaultMaxSamples,
		loc:        time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{students: make(map[string]*student)}
	}
	metrics.UpdateStudentsTracked(0)
	metrics.UpdateCoursesTracked(0)
	return s
}

func (s *MemStore) shardFor(studentID string) *shard {
	return s.shards[xxhash.Sum64String(studentID)%uint64(len(s.shards))]
}

// Apply implements Store.
func (s *MemStore) Apply(_ context.Context, e model.GradeEvent) error { //nolint:gocritic // hugeParam: events travel by value
	if e.StudentID == "" || e.CourseID == "" {
		return fmt.Errorf("%w: student and course are required", ErrInvalidEvent)
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now()
	}

	sh := s.shardFor(e.StudentID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	switch e.Kind {
	case model.KindGradeSnapshot:
		s.appendSample(s.courseLocked(sh, e.StudentID, e.CourseID), e.Sample, e.ReceivedAt)
	case model.KindAssessment:
		if e.Assessment.ID == "" || e.Assessment.CategoryID == "" {
			return fmt.Errorf("%w: assessment id and category are required", ErrInvalidEvent)
		}
		upsertAssessment(s.courseLocked(sh, e.StudentID, e.CourseID), e.CategoryName, e.Assessment, e.ReceivedAt)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	return nil
}

// courseLocked returns the course, creating student and course on first use.
// The shard lock must be held for writing.
func (s *MemStore) courseLocked(sh *shard, studentID, courseID string) *course {
	st := s.studentLocked(sh, studentID)
	c, ok := st.courses[courseID]
	if !ok {
		c = &course{catIndex: make(map[string]int)}
		st.courses[courseID] = c
		metrics.UpdateCoursesTracked(int(s.courses.Add(1)))
	}
	return c
}

func (s *MemStore) studentLocked(sh *shard, studentID string) *student {
	st, ok := sh.students[studentID]
	if !ok {
		st = &student{courses: make(map[string]*course), goals: make(map[string]model.Goal)}
		sh.students[studentID] = st
		metrics.UpdateStudentsTracked(int(s.students.Add(1)))
	}
	return st
}

func (s *MemStore) appendSample(c *course, sample model.ScoreSample, received time.Time) {
	c.samples = append(c.samples, sample)
	s.samples.Add(1)
	if s.maxSamples > 0 && len(c.samples) > s.maxSamples {
		drop := len(c.samples) - s.maxSamples
		c.samples = append(c.samples[:0:0], c.samples[drop:]...)
		s.samples.Add(int64(-drop))
		metrics.RecordSamplesDropped(drop)
	}
	c.updatedAt = received

	v, ok := sampleCurrent(sample)
	if !ok {
		return
	}
	at := s.recency(sample, received)
	if !c.current.Valid || !at.Before(c.currentAt) {
		c.current = null.Float64From(v)
		c.currentAt = at
	}
}

// recency orders snapshots for the live grade: calculation time, then
// creation, then due date, then arrival.
func (s *MemStore) recency(sample model.ScoreSample, received time.Time) time.Time {
	for _, raw := range []string{sample.CalculatedAt, sample.CreatedAt, sample.DueDate} {
		if t, ok := model.ParseTimestamp(raw, s.loc); ok {
			return t
		}
	}
	return received
}

func sampleCurrent(sample model.ScoreSample) (float64, bool) {
	if sample.Value.Valid && !math.IsNaN(sample.Value.Float64) {
		return sample.Value.Float64, true
	}
	if sample.PercentageScore.Valid && !math.IsNaN(sample.PercentageScore.Float64) {
		return gpa.FromPercentage(sample.PercentageScore.Float64), true
	}
	return 0, false
}

func upsertAssessment(c *course, categoryName string, a model.Assessment, received time.Time) {
	i, ok := c.catIndex[a.CategoryID]
	if !ok {
		i = len(c.categories)
		c.catIndex[a.CategoryID] = i
		c.categories = append(c.categories, &model.Category{ID: a.CategoryID})
	}
	cat := c.categories[i]
	if categoryName != "" {
		cat.Name = categoryName
	}
	c.updatedAt = received
	for j := range cat.Assessments {
		if cat.Assessments[j].ID == a.ID {
			cat.Assessments[j] = a
			return
		}
	}
	cat.Assessments = append(cat.Assessments, a)
}

// Course implements Store.
func (s *MemStore) Course(_ context.Context, studentID, courseID string) (Course, error) {
	sh := s.shardFor(studentID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	st, ok := sh.students[studentID]
	if !ok {
		return Course{}, fmt.Errorf("student %q: %w", studentID, ErrNotFound)
	}
	c, ok := st.courses[courseID]
	if !ok {
		return Course{}, fmt.Errorf("course %q of student %q: %w", courseID, studentID, ErrNotFound)
	}

	out := Course{
		StudentID:  studentID,
		CourseID:   courseID,
		Samples:    append([]model.ScoreSample(nil), c.samples...),
		Categories: make([]model.Category, len(c.categories)),
		Current:    c.current,
		UpdatedAt:  c.updatedAt,
	}
	for i, cat := range c.categories {
		out.Categories[i] = model.Category{
			ID:          cat.ID,
			Name:        cat.Name,
			Assessments: append([]model.Assessment(nil), cat.Assessments...),
		}
	}
	return out, nil
}

// PutGoal implements Store.
func (s *MemStore) PutGoal(_ context.Context, g model.Goal) error { //nolint:gocritic // hugeParam
	if g.ID == "" || g.StudentID == "" {
		return fmt.Errorf("%w: goal and student ids are required", ErrInvalidGoal)
	}
	sh := s.shardFor(g.StudentID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st := s.studentLocked(sh, g.StudentID)
	if _, ok := st.goals[g.ID]; !ok {
		s.goals.Add(1)
	}
	st.goals[g.ID] = g
	return nil
}

// Goal implements Store.
func (s *MemStore) Goal(_ context.Context, studentID, goalID string) (model.Goal, error) {
	sh := s.shardFor(studentID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	if st, ok := sh.students[studentID]; ok {
		if g, ok := st.goals[goalID]; ok {
			return g, nil
		}
	}
	return model.Goal{}, fmt.Errorf("goal %q of student %q: %w", goalID, studentID, ErrNotFound)
}

// Goals implements Store.
func (s *MemStore) Goals(_ context.Context, studentID string) ([]model.Goal, error) {
	sh := s.shardFor(studentID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	st, ok := sh.students[studentID]
	if !ok {
		return nil, fmt.Errorf("goals of student %q: %w", studentID, ErrNotFound)
	}
	out := make([]model.Goal, 0, len(st.goals))
	for _, g := range st.goals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Stats implements Store.
func (s *MemStore) Stats(_ context.Context) Stats {
	return Stats{
		Shards:   len(s.shards),
		Students: int(s.students.Load()),
		Courses:  int(s.courses.Load()),
		Goals:    int(s.goals.Load()),
		Samples:  int(s.samples.Load()),
	}
}
