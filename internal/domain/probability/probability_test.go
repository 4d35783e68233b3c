package probability_test

import (
	"math"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/model"
	"github.com/fausterrex/gradegoal/internal/domain/probability"
)

var now = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

func due(days int) null.Time {
	return null.TimeFrom(now.Add(time.Duration(days) * 24 * time.Hour))
}

func TestAchievement(t *testing.T) {
	convey.Convey("Given the achievement heuristic", t, func() {
		convey.Convey("When a course goal is nearly met", func() {
			got := probability.Achievement(probability.Input{
				Current: 3.6, Target: 4.0, GoalType: model.GoalCourseGrade,
			}, now)

			convey.Convey("Then the boost saturates at 100", func() {
				convey.So(got, convey.ShouldEqual, 100.0)
			})
		})

		convey.Convey("When a semester goal has little progress", func() {
			got := probability.Achievement(probability.Input{
				Current: 1.0, Target: 4.0, GoalType: model.GoalSemesterGPA,
			}, now)

			convey.Convey("Then only the type modifier applies", func() {
				convey.So(got, convey.ShouldAlmostEqual, 27.5, 1e-9)
			})
		})

		convey.Convey("When base progress sits in the lower boost tiers", func() {
			in := probability.Input{Target: 100, GoalType: model.GoalCumulativeGPA}

			in.Current = 72
			convey.So(probability.Achievement(in, now), convey.ShouldAlmostEqual, 82.8, 1e-9)

			in.Current = 82
			convey.So(probability.Achievement(in, now), convey.ShouldAlmostEqual, 98.4, 1e-9)

			in.Current = 70
			convey.So(probability.Achievement(in, now), convey.ShouldAlmostEqual, 70, 1e-9)
		})

		convey.Convey("When a target date is supplied", func() {
			in := probability.Input{Current: 2, Target: 4, GoalType: model.GoalCumulativeGPA}

			convey.Convey("Then far deadlines raise the estimate", func() {
				in.TargetDate = due(40)
				convey.So(probability.Achievement(in, now), convey.ShouldAlmostEqual, 55, 1e-9)
			})

			convey.Convey("Then mid-range deadlines are neutral", func() {
				in.TargetDate = due(10)
				convey.So(probability.Achievement(in, now), convey.ShouldAlmostEqual, 50, 1e-9)
			})

			convey.Convey("Then close and past deadlines lower it", func() {
				in.TargetDate = due(3)
				convey.So(probability.Achievement(in, now), convey.ShouldAlmostEqual, 45, 1e-9)
				in.TargetDate = due(-12)
				convey.So(probability.Achievement(in, now), convey.ShouldAlmostEqual, 45, 1e-9)
			})

			convey.Convey("Then a null date is treated as absent", func() {
				in.TargetDate = null.Time{}
				convey.So(probability.Achievement(in, now), convey.ShouldAlmostEqual, 50, 1e-9)
			})
		})

		convey.Convey("When inputs are degenerate", func() {
			convey.So(probability.Achievement(probability.Input{Current: 2, Target: 0}, now), convey.ShouldEqual, 0.0)
			convey.So(probability.Achievement(probability.Input{Current: 2, Target: -1}, now), convey.ShouldEqual, 0.0)
			convey.So(probability.Achievement(probability.Input{Current: 2, Target: math.NaN()}, now), convey.ShouldEqual, 0.0)
			convey.So(probability.Achievement(probability.Input{Current: -1, Target: 4}, now), convey.ShouldEqual, 0.0)
			convey.So(probability.Achievement(probability.Input{Current: math.NaN(), Target: 4}, now), convey.ShouldEqual, 0.0)
			convey.So(probability.Achievement(probability.Input{Current: 0, Target: 0}, now), convey.ShouldEqual, 0.0)
		})

		convey.Convey("When the goal type is unknown", func() {
			got := probability.Achievement(probability.Input{Current: 1, Target: 4, GoalType: "WEEKLY"}, now)
			convey.So(got, convey.ShouldAlmostEqual, 25, 1e-9)
		})

		convey.Convey("When sweeping the input space", func() {
			types := []model.GoalType{model.GoalCourseGrade, model.GoalSemesterGPA, model.GoalCumulativeGPA, "OTHER"}
			dates := []null.Time{{}, due(1), due(8), due(31), due(-3)}

			convey.Convey("Then the range and short-circuit properties hold", func() {
				for _, gt := range types {
					for _, d := range dates {
						for target := 0.5; target <= 4; target += 0.5 {
							for current := -1.0; current <= 5; current += 0.25 {
								got := probability.Achievement(probability.Input{
									Current: current, Target: target, GoalType: gt, TargetDate: d,
								}, now)
								convey.So(got, convey.ShouldBeBetweenOrEqual, 0.0, 100.0)
								switch {
								case current >= target:
									convey.So(got, convey.ShouldEqual, 100.0)
								case current <= 0:
									convey.So(got, convey.ShouldEqual, 0.0)
								default:
									base := current / target * 100
									convey.So(got, convey.ShouldBeGreaterThanOrEqualTo, math.Min(base*0.85, 85)-1e-9)
								}
							}
						}
					}
				}
			})
		})
	})
}

func TestModifierAndDays(t *testing.T) {
	convey.Convey("Given the lookup helpers", t, func() {
		convey.So(probability.Modifier(model.GoalCourseGrade), convey.ShouldEqual, 1.2)
		convey.So(probability.Modifier(model.GoalSemesterGPA), convey.ShouldEqual, 1.1)
		convey.So(probability.Modifier(model.GoalCumulativeGPA), convey.ShouldEqual, 1.0)
		convey.So(probability.Modifier(""), convey.ShouldEqual, 1.0)

		convey.So(probability.DaysRemaining(now.Add(36*time.Hour), now), convey.ShouldEqual, 2)
		convey.So(probability.DaysRemaining(now.Add(time.Hour), now), convey.ShouldEqual, 1)
		convey.So(probability.DaysRemaining(now.Add(-72*time.Hour), now), convey.ShouldEqual, 1)
	})
}

func TestEstimator(t *testing.T) {
	convey.Convey("Given an estimator with a fixed clock", t, func() {
		e := probability.NewEstimator(probability.WithClock(func() time.Time { return now }))

		convey.Convey("Then deadlines are measured from that clock", func() {
			got := e.Estimate(probability.Input{Current: 2, Target: 4, GoalType: model.GoalCumulativeGPA, TargetDate: due(40)})
			convey.So(got, convey.ShouldAlmostEqual, 55, 1e-9)
		})

		convey.Convey("Then a nil clock keeps the default", func() {
			d := probability.NewEstimator(probability.WithClock(nil))
			convey.So(d.Estimate(probability.Input{Current: 4, Target: 4}), convey.ShouldEqual, 100.0)
		})
	})
}
