package model

import (
	"fmt"
	"strings"

	"github.com/volatiletech/null/v8"
)

// GoalType classifies an academic target.
type GoalType string

// Goal types as spelled by the backend. The cumulative spelling is the one
// stored upstream and must round-trip unchanged.
const (
	GoalCourseGrade   GoalType = "COURSE_GRADE"
	GoalSemesterGPA   GoalType = "SEMESTER_GPA"
	GoalCumulativeGPA GoalType = "CUMMULATIVE_GPA"
)

// ParseGoalType maps a wire value to a GoalType. Matching is case-insensitive
// and accepts the correctly spelled CUMULATIVE_GPA as an alias.
func ParseGoalType(s string) (GoalType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(GoalCourseGrade):
		return GoalCourseGrade, nil
	case string(GoalSemesterGPA):
		return GoalSemesterGPA, nil
	case string(GoalCumulativeGPA), "CUMULATIVE_GPA":
		return GoalCumulativeGPA, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGoalType, s)
	}
}

// Valid reports whether g is one of the known goal types.
func (g GoalType) Valid() bool {
	switch g {
	case GoalCourseGrade, GoalSemesterGPA, GoalCumulativeGPA:
		return true
	}
	return false
}

// Goal is an academic target set by a student. Goals are immutable inputs to
// the estimators.
type Goal struct {
	ID                string       `json:"id"`
	StudentID         string       `json:"student_id"`
	CourseID          string       `json:"course_id,omitempty"`
	Type              GoalType     `json:"goal_type"`
	TargetValue       float64      `json:"target_value"`
	CurrentValue      float64      `json:"current_value"`
	TargetDate        null.Time    `json:"target_date"`
	IsCourseCompleted bool         `json:"is_course_completed"`
	IsAchieved        bool         `json:"is_achieved"`
	AISuccessRate     null.Float64 `json:"ai_success_rate"` // externally supplied, course goals only
}
