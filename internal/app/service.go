// Package service wires the grade store, ingest pipeline and analytics engine
// into the operations the HTTP API depends on.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/volatiletech/null/v8"

	eventqueue "github.com/fausterrex/gradegoal/internal/adapters/mq/queue"
	workerpool "github.com/fausterrex/gradegoal/internal/adapters/mq/worker"
	repository "github.com/fausterrex/gradegoal/internal/adapters/repository"
	"github.com/fausterrex/gradegoal/internal/domain/completion"
	"github.com/fausterrex/gradegoal/internal/domain/dedupe"
	"github.com/fausterrex/gradegoal/internal/domain/model"
	"github.com/fausterrex/gradegoal/internal/domain/probability"
	"github.com/fausterrex/gradegoal/internal/domain/progression"
	"github.com/fausterrex/gradegoal/internal/domain/types"
	"github.com/fausterrex/gradegoal/pkg/logger"
	"github.com/fausterrex/gradegoal/pkg/metrics"
)

const (
	defaultQueueSize  = 10000
	defaultDedupeSize = 50000
	drainTimeout      = 10 * time.Second
)

// Service implements the API dependencies for the analytics service.
type Service struct {
	mu sync.RWMutex

	store      *repository.MemStore
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	aggregator *progression.Aggregator
	estimator  *probability.Estimator

	workerCount int
	queueSize   int
	dedupeSize  int
	shardCount  int
	maxSamples  int
	loc         *time.Location
	now         func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many event IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithMaxSamples bounds the snapshots kept per course.
func WithMaxSamples(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSamples = n
		}
	}
}

// WithLocation sets the zone used for week boundaries.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the time source used for goal deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. The store and deduper exist immediately; the
// queue and workers are created by Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		loc:         time.UTC,
		now:         time.Now,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	storeOpts := []repository.Option{repository.WithLocation(s.loc)}
	if s.shardCount > 0 {
		storeOpts = append(storeOpts, repository.WithShardCount(s.shardCount))
	}
	if s.maxSamples > 0 {
		storeOpts = append(storeOpts, repository.WithMaxSamplesPerCourse(s.maxSamples))
	}
	s.store = repository.NewMemStore(storeOpts...)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.aggregator = progression.NewAggregator(progression.WithLocation(s.loc))
	s.estimator = probability.NewEstimator(probability.WithClock(s.now))
	return s
}

// Start creates the queue and worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting grade analytics service...")

	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.store,
		workerpool.WithPoolLogger(s.logger.Named("worker-pool")))
	// Workers ignore ctx cancellation; Stop drains them.
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "grade analytics service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.String("timezone", s.loc.String()),
	)
	return nil
}

// Stop closes the queue and waits for queued events to be applied.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping grade analytics service...")
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "workers did not drain", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "grade analytics service stopped")
}

// SeenAndRecord reports whether the event ID was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord forgets an event ID so the event can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the number of remembered event IDs.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// Enqueue submits a grade event for asynchronous application. It returns
// false when the service is not running or the queue is full.
func (s *Service) Enqueue(ctx context.Context, e model.GradeEvent) bool { //nolint:gocritic // hugeParam: events travel by value
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		metrics.RecordEventRejected("not_started")
		return false
	}
	if !s.eventQueue.Enqueue(ctx, e) {
		metrics.RecordEventRejected("backpressure")
		s.logger.Warn(ctx, "grade event rejected by queue",
			logger.String("event_id", e.EventID),
			logger.Int("queue_length", s.eventQueue.Len(ctx)),
		)
		return false
	}
	metrics.RecordEventIngested(string(e.Kind))
	return true
}

// Progression returns the weekly series of a course. A valid current
// overrides the live grade for the last week.
func (s *Service) Progression(ctx context.Context, studentID, courseID string, current null.Float64) (types.Progression, error) {
	p, _, err := s.PollProgression(ctx, studentID, courseID, current, progression.State{})
	return p, err
}

// PollProgression is Progression for polling callers: prev is the state the
// caller rendered last, and the bool reports whether the series changed since.
func (s *Service) PollProgression(ctx context.Context, studentID, courseID string, current null.Float64, prev progression.State) (types.Progression, bool, error) {
	c, err := s.store.Course(ctx, studentID, courseID)
	if err != nil {
		return types.Progression{}, false, fmt.Errorf("progression: %w", err)
	}
	live := c.Current
	if current.Valid {
		live = current
	}

	state, changed := s.aggregator.Tick(prev, c.Samples, live.Float64)
	metrics.RecordSeriesComputed(len(state.Series))
	return types.Progression{
		StudentID:   studentID,
		CourseID:    courseID,
		Fingerprint: state.Hex(),
		Current:     live.Float64,
		Weeks:       state.Series,
	}, changed, nil
}

// Completion returns how much of a course's graded work is done.
func (s *Service) Completion(ctx context.Context, studentID, courseID string) (types.Completion, error) {
	c, err := s.store.Course(ctx, studentID, courseID)
	if err != nil {
		return types.Completion{}, fmt.Errorf("completion: %w", err)
	}
	return types.Completion{
		StudentID:  studentID,
		CourseID:   courseID,
		Percent:    completion.Course(c.Categories),
		Categories: completion.ByCategory(c.Categories),
	}, nil
}

// PutGoal registers or replaces a goal.
func (s *Service) PutGoal(ctx context.Context, g model.Goal) error { //nolint:gocritic // hugeParam
	if !g.Type.Valid() {
		return fmt.Errorf("put goal %q: %w: %q", g.ID, model.ErrUnknownGoalType, g.Type)
	}
	if err := s.store.PutGoal(ctx, g); err != nil {
		return fmt.Errorf("put goal %q: %w", g.ID, err)
	}
	s.logger.Debug(ctx, "goal stored",
		logger.String("student_id", g.StudentID),
		logger.String("goal_id", g.ID),
		logger.String("goal_type", string(g.Type)),
	)
	return nil
}

// GoalReports resolves every goal of a student. Course goals whose course is
// tracked take the live course grade as current progress and the course
// completion as input.
func (s *Service) GoalReports(ctx context.Context, studentID string) (types.GoalReports, error) {
	goals, err := s.store.Goals(ctx, studentID)
	if err != nil {
		return types.GoalReports{}, fmt.Errorf("goal reports: %w", err)
	}

	reports := make([]probability.Report, 0, len(goals))
	for _, g := range goals {
		var pct null.Float64
		if g.CourseID != "" {
			if c, err := s.store.Course(ctx, studentID, g.CourseID); err == nil {
				pct = null.Float64From(completion.Course(c.Categories))
				if g.Type == model.GoalCourseGrade && c.Current.Valid {
					g.CurrentValue = c.Current.Float64
				}
			}
		}
		r := s.estimator.Assess(g, pct)
		metrics.RecordProbability(string(r.GoalType), string(r.Source), r.SuccessRate)
		reports = append(reports, r)
	}
	return types.GoalReports{StudentID: studentID, Goals: reports}, nil
}

// Estimate runs the stateless probability heuristic.
func (s *Service) Estimate(in probability.Input) float64 {
	p := s.estimator.Estimate(in)
	metrics.RecordProbability(string(in.GoalType), string(probability.SourceHeuristic), p)
	return p
}

// GetStats returns service statistics for /stats.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"dedupeUsed":  s.deduper.Size(),
		"timezone":    s.loc.String(),
		"store":       s.store.Stats(ctx),
	}
	if s.started {
		stats["queueLength"] = s.eventQueue.Len(ctx)
		stats["activeWorkers"] = s.workerPool.Active()
	}
	return stats
}
