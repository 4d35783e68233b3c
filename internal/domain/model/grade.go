// Package model contains domain models passed between layers.
package model

import (
	"math"

	"github.com/volatiletech/null/v8"
)

// ScoreSample is one "current grade" snapshot taken after an assessment was
// graded. Dates are kept as the raw ISO-8601 strings the backend sends; any of
// them may be empty or unparseable.
type ScoreSample struct {
	Value           null.Float64 `json:"current_grade"`    // course grade on the GPA scale
	PercentageScore null.Float64 `json:"percentage_score"` // raw percentage, used when Value is absent
	DueDate         string       `json:"due_date,omitempty"`
	CreatedAt       string       `json:"created_at,omitempty"`
	CalculatedAt    string       `json:"calculated_at,omitempty"`
}

// Assessment is a single gradable item inside a course category.
type Assessment struct {
	ID         string       `json:"id"`
	CategoryID string       `json:"category_id"`
	Score      null.Float64 `json:"score"`
}

// Scored reports whether the assessment has a usable, strictly positive score.
func (a Assessment) Scored() bool {
	return a.Score.Valid && !math.IsNaN(a.Score.Float64) && a.Score.Float64 > 0
}

// Category groups the assessments of a course (e.g. "Quizzes", "Exams").
type Category struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	Assessments []Assessment `json:"assessments"`
}
