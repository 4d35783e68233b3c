package probability

import (
	"math"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/gpa"
	"github.com/fausterrex/gradegoal/internal/domain/model"
)

// Status is the display state of a goal.
type Status string

// Goal statuses.
const (
	StatusInProgress Status = "in_progress"
	StatusAchieved   Status = "achieved"
	StatusMissed     Status = "missed"
)

// Source tells where a success rate came from.
type Source string

// Success rate sources.
const (
	SourceHeuristic Source = "heuristic"
	SourceAI        Source = "ai"
)

// Report is a goal with its success rate and status resolved.
type Report struct {
	GoalID      string         `json:"goal_id"`
	CourseID    string         `json:"course_id,omitempty"`
	GoalType    model.GoalType `json:"goal_type"`
	Current     float64        `json:"current"`
	Target      float64        `json:"target"`
	SuccessRate float64        `json:"success_rate"`
	Source      Source         `json:"source"`
	Status      Status         `json:"status"`
	Completion  null.Float64   `json:"completion"`
	DaysLeft    null.Int       `json:"days_left"`
}

// Assess resolves the success rate and status of goal. Target and current are
// normalised to the GPA scale first, so percentages can be stored on goals.
// completionPct is the owning course's completion, when known.
func Assess(goal model.Goal, completionPct null.Float64, now time.Time) Report {
	target := gpa.Normalize(goal.TargetValue)
	current := gpa.Normalize(goal.CurrentValue)

	r := Report{
		GoalID:     goal.ID,
		CourseID:   goal.CourseID,
		GoalType:   goal.Type,
		Current:    current,
		Target:     target,
		Completion: completionPct,
		Source:     SourceHeuristic,
	}
	if goal.TargetDate.Valid && !goal.TargetDate.Time.IsZero() {
		r.DaysLeft = null.IntFrom(DaysRemaining(goal.TargetDate.Time, now))
	}

	if goal.Type == model.GoalCourseGrade && goal.AISuccessRate.Valid && !math.IsNaN(goal.AISuccessRate.Float64) {
		r.SuccessRate = clamp(goal.AISuccessRate.Float64)
		r.Source = SourceAI
	} else {
		r.SuccessRate = Achievement(Input{
			Current:          current,
			Target:           target,
			GoalType:         goal.Type,
			TargetDate:       goal.TargetDate,
			CourseCompletion: completionPct,
		}, now)
	}

	achieved := goal.IsAchieved || (target > 0 && current >= target)
	courseDone := goal.IsCourseCompleted || (completionPct.Valid && completionPct.Float64 >= 100)
	switch {
	case achieved:
		r.Status = StatusAchieved
	case courseDone:
		r.Status = StatusMissed
	default:
		r.Status = StatusInProgress
	}
	return r
}
