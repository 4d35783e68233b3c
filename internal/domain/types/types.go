// Package types contains response bodies shared by the HTTP API and its clients.
package types

import (
	"math"

	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/completion"
	"github.com/fausterrex/gradegoal/internal/domain/gpa"
	"github.com/fausterrex/gradegoal/internal/domain/probability"
	"github.com/fausterrex/gradegoal/internal/domain/progression"
)

// Progression is the weekly chart series of one course.
type Progression struct {
	StudentID   string              `json:"student_id"`
	CourseID    string              `json:"course_id"`
	Fingerprint string              `json:"fingerprint"`
	Current     float64             `json:"current"`
	Weeks       []progression.Point `json:"weeks"`
}

// Completion is the graded-work ratio of one course.
type Completion struct {
	StudentID  string                 `json:"student_id"`
	CourseID   string                 `json:"course_id"`
	Percent    float64                `json:"percent"`
	Categories []completion.Breakdown `json:"categories"`
}

// GoalReports lists the resolved goals of a student.
type GoalReports struct {
	StudentID string               `json:"student_id"`
	Goals     []probability.Report `json:"goals"`
}

// GPA is a single percentage conversion. Percent is null when the input
// was not a finite number.
type GPA struct {
	Percent null.Float64 `json:"percent"`
	GPA     float64      `json:"gpa"`
}

// NewGPA converts percent and echoes it back when JSON can carry it.
func NewGPA(percent float64) GPA {
	out := GPA{GPA: gpa.FromPercentage(percent)}
	if !math.IsNaN(percent) && !math.IsInf(percent, 0) {
		out.Percent = null.Float64From(percent)
	}
	return out
}

// Probability is a single heuristic estimate.
type Probability struct {
	Probability float64 `json:"probability"`
}

// IngestStatus acknowledges a submitted grade event.
type IngestStatus struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}
