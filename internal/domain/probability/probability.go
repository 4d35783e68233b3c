// Package probability estimates how likely a student is to reach a goal.
package probability

import (
	"math"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/model"
)

// Heuristic constants. They are empirically tuned and shape the success rates
// students already see, so they must not be renormalised.
const (
	maxProbability = 100

	longHorizonDays  = 30
	shortHorizonDays = 7

	longHorizonFactor  = 1.1
	midHorizonFactor   = 1.0
	shortHorizonFactor = 0.9

	floorRatio = 0.85
	floorCap   = 85
)

// boostTiers are checked top-down against the base progress; only the first
// matching tier applies.
var boostTiers = []struct {
	above, factor float64
}{
	{above: 90, factor: 1.3},
	{above: 80, factor: 1.2},
	{above: 70, factor: 1.15},
}

var typeModifiers = map[model.GoalType]float64{
	model.GoalCourseGrade:   1.2,
	model.GoalSemesterGPA:   1.1,
	model.GoalCumulativeGPA: 1.0,
}

// Input is everything the heuristic looks at. Current and Target must be on
// the same scale.
type Input struct {
	Current          float64
	Target           float64
	GoalType         model.GoalType
	TargetDate       null.Time
	CourseCompletion null.Float64 // carried for callers; the heuristic ignores it
}

// Achievement returns the estimated probability (0-100) that in's goal will be
// reached, evaluated at now. It never fails: absent or NaN values take the
// zero branches.
func Achievement(in Input, now time.Time) float64 {
	target, current := in.Target, in.Current
	switch {
	case math.IsNaN(target) || target <= 0:
		return 0
	case current >= target:
		return maxProbability
	case math.IsNaN(current) || current <= 0:
		return 0
	}

	base := current / target * 100
	p := base * timeFactor(in.TargetDate, now)
	for _, tier := range boostTiers {
		if base > tier.above {
			p = math.Min(p*tier.factor, maxProbability)
			break
		}
	}

	floor := math.Min(base*floorRatio, floorCap)
	p = math.Max(p*Modifier(in.GoalType), floor)
	return clamp(p)
}

// Modifier returns the goal-type multiplier; unknown types are neutral.
func Modifier(t model.GoalType) float64 {
	if m, ok := typeModifiers[t]; ok {
		return m
	}
	return 1.0
}

// DaysRemaining is the whole number of days left until target, at least 1.
func DaysRemaining(target, now time.Time) int {
	days := math.Ceil(target.Sub(now).Hours() / 24)
	if days < 1 {
		return 1
	}
	return int(days)
}

func timeFactor(target null.Time, now time.Time) float64 {
	if !target.Valid || target.Time.IsZero() {
		return midHorizonFactor
	}
	switch days := DaysRemaining(target.Time, now); {
	case days > longHorizonDays:
		return longHorizonFactor
	case days > shortHorizonDays:
		return midHorizonFactor
	default:
		return shortHorizonFactor
	}
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > maxProbability:
		return maxProbability
	default:
		return p
	}
}
