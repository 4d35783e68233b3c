// Package repository holds per-student grade state in memory.
package repository

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/model"
)

// Course is a copy of everything stored for one student course.
type Course struct {
	StudentID  string
	CourseID   string
	Samples    []model.ScoreSample
	Categories []model.Category
	Current    null.Float64 // value of the most recent snapshot
	UpdatedAt  time.Time
}

// Stats summarises the store contents.
type Stats struct {
	Shards   int `json:"shards"`
	Students int `json:"students"`
	Courses  int `json:"courses"`
	Goals    int `json:"goals"`
	Samples  int `json:"samples"`
}

// Store provides read/write access to grade state.
type Store interface {
	// Apply folds a grade event into the store.
	Apply(ctx context.Context, e model.GradeEvent) error

	// Course returns a copy of the course, or ErrNotFound.
	Course(ctx context.Context, studentID, courseID string) (Course, error)

	// PutGoal inserts or replaces a goal by ID.
	PutGoal(ctx context.Context, g model.Goal) error

	// Goal returns one goal, or ErrNotFound.
	Goal(ctx context.Context, studentID, goalID string) (model.Goal, error)

	// Goals returns the student's goals ordered by ID, or ErrNotFound when
	// the student has none.
	Goals(ctx context.Context, studentID string) ([]model.Goal, error)

	Stats(ctx context.Context) Stats
}
