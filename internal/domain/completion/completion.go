// Package completion estimates how much of a course's graded work is done.
package completion

import "github.com/fausterrex/gradegoal/internal/domain/model"

// Breakdown is the completion of a single category.
type Breakdown struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name,omitempty"`
	Expected   int     `json:"expected"`
	Completed  int     `json:"completed"`
	Percent    float64 `json:"percent"`
}

// Course returns the percentage (0-100) of expected assessments that have a
// score. A category with no assessments still counts as one expected unit, so
// a freshly created course never reads as complete.
func Course(categories []model.Category) float64 {
	if len(categories) == 0 {
		return 0
	}
	var expected, completed int
	for _, c := range categories {
		e, d := count(c)
		expected += e
		completed += d
	}
	return ratio(completed, expected)
}

// ByCategory returns the per-category breakdown in input order.
func ByCategory(categories []model.Category) []Breakdown {
	out := make([]Breakdown, 0, len(categories))
	for _, c := range categories {
		e, d := count(c)
		out = append(out, Breakdown{
			CategoryID: c.ID,
			Name:       c.Name,
			Expected:   e,
			Completed:  d,
			Percent:    ratio(d, e),
		})
	}
	return out
}

func count(c model.Category) (expected, completed int) {
	expected = max(len(c.Assessments), 1)
	for _, a := range c.Assessments {
		if a.Scored() {
			completed++
		}
	}
	return expected, completed
}

func ratio(completed, expected int) float64 {
	if expected == 0 {
		return 0
	}
	return float64(completed) / float64(expected) * 100
}
