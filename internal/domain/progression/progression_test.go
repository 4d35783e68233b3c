package progression_test

import (
	"math"
	"testing"
	"time"

	"github.com/fausterrex/gradegoal/internal/domain/model"
	"github.com/fausterrex/gradegoal/internal/domain/progression"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/volatiletech/null/v8"
)

func snapshot(value float64, due, calculated string) model.ScoreSample {
	return model.ScoreSample{Value: null.Float64From(value), DueDate: due, CalculatedAt: calculated}
}

func TestWeekStart(t *testing.T) {
	Convey("Given timestamps across a week", t, func() {
		monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

		Convey("Then every day maps to that Monday at midnight", func() {
			for day := 0; day < 7; day++ {
				ts := monday.AddDate(0, 0, day).Add(15*time.Hour + 42*time.Minute)
				So(progression.WeekStart(ts), ShouldEqual, monday)
			}
		})

		Convey("Then a Sunday goes back six days", func() {
			sunday := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
			So(progression.WeekStart(sunday), ShouldEqual, monday)
		})

		Convey("Then the next Monday starts a new week", func() {
			next := time.Date(2024, 3, 11, 0, 0, 1, 0, time.UTC)
			So(progression.WeekStart(next), ShouldEqual, monday.AddDate(0, 0, 7))
		})
	})
}

func TestToWeeklySeries(t *testing.T) {
	Convey("Given the weekly aggregator", t, func() {
		Convey("When there are no samples", func() {
			points := progression.ToWeeklySeries(nil, 3.2)

			Convey("Then the series is empty but not nil", func() {
				So(points, ShouldNotBeNil)
				So(points, ShouldBeEmpty)
			})
		})

		Convey("When samples fall on Tuesday and Thursday of the same week", func() {
			samples := []model.ScoreSample{
				snapshot(2.5, "2024-03-05T09:00:00Z", "2024-03-05T10:00:00Z"),
				snapshot(3.0, "2024-03-07T09:00:00Z", "2024-03-07T10:00:00Z"),
			}
			points := progression.ToWeeklySeries(samples, 3.1)

			Convey("Then they collapse into one bucket", func() {
				So(len(points), ShouldEqual, 1)
				So(points[0].WeekLabel, ShouldEqual, "W1")
				So(points[0].SampleCount, ShouldEqual, 2)
				So(points[0].WeekStart, ShouldEqual, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
			})

			Convey("And the single bucket carries the current value", func() {
				So(points[0].Value, ShouldEqual, 3.1)
			})
		})

		Convey("When samples span several weeks", func() {
			samples := []model.ScoreSample{
				snapshot(3.5, "2024-03-19T09:00:00Z", "2024-03-19T12:00:00Z"),
				snapshot(2.0, "2024-03-05T09:00:00Z", "2024-03-05T12:00:00Z"),
				snapshot(2.5, "2024-03-06T09:00:00Z", "2024-03-08T12:00:00Z"),
				snapshot(2.2, "2024-03-07T09:00:00Z", "2024-03-07T12:00:00Z"),
				snapshot(3.0, "2024-03-12T09:00:00Z", "2024-03-12T12:00:00Z"),
			}
			points := progression.ToWeeklySeries(samples, 3.8)

			Convey("Then weeks are emitted in ascending order with sequential labels", func() {
				So(len(points), ShouldEqual, 3)
				So(points[0].WeekLabel, ShouldEqual, "W1")
				So(points[1].WeekLabel, ShouldEqual, "W2")
				So(points[2].WeekLabel, ShouldEqual, "W3")
				So(points[0].WeekStart.Before(points[1].WeekStart), ShouldBeTrue)
				So(points[1].WeekStart.Before(points[2].WeekStart), ShouldBeTrue)
			})

			Convey("Then the most recently calculated sample represents its week", func() {
				So(points[0].SampleCount, ShouldEqual, 3)
				So(points[0].Value, ShouldEqual, 2.5)
				So(points[1].Value, ShouldEqual, 3.0)
			})

			Convey("Then the last week is overridden by the current value", func() {
				So(points[2].Value, ShouldEqual, 3.8)
			})
		})

		Convey("When the most recent sample is stale", func() {
			samples := []model.ScoreSample{
				snapshot(1.0, "2024-03-05T09:00:00Z", "2024-03-05T09:00:00Z"),
			}

			Convey("Then the last bucket equals the supplied current value regardless", func() {
				for _, current := range []float64{0, 0.5, 2.25, 4} {
					points := progression.ToWeeklySeries(samples, current)
					So(points[len(points)-1].Value, ShouldEqual, current)
				}
			})
		})

		Convey("When values fall outside the GPA scale", func() {
			samples := []model.ScoreSample{
				snapshot(7.5, "2024-03-05T09:00:00Z", ""),
				snapshot(-1, "2024-03-12T09:00:00Z", ""),
			}
			points := progression.ToWeeklySeries(samples, 9)

			Convey("Then bucket values and the current value are clamped to [0,4]", func() {
				So(points[0].Value, ShouldEqual, 4.0)
				So(points[1].Value, ShouldEqual, 4.0)
			})

			Convey("And a NaN current value is treated as zero", func() {
				points := progression.ToWeeklySeries(samples, math.NaN())
				So(points[1].Value, ShouldEqual, 0.0)
			})
		})

		Convey("When samples have unparseable or missing dates", func() {
			samples := []model.ScoreSample{
				snapshot(2.0, "not a date", ""),
				{Value: null.Float64From(3.0)},
				snapshot(2.5, "2024-03-05T09:00:00Z", ""),
			}
			points := progression.ToWeeklySeries(samples, 2.9)

			Convey("Then they are dropped silently", func() {
				So(len(points), ShouldEqual, 1)
				So(points[0].SampleCount, ShouldEqual, 1)
			})
		})

		Convey("When the due date is missing", func() {
			samples := []model.ScoreSample{
				{Value: null.Float64From(2.0), CreatedAt: "2024-03-05T09:00:00Z"},
				{Value: null.Float64From(3.0), CalculatedAt: "2024-03-13T09:00:00Z"},
			}
			points := progression.ToWeeklySeries(samples, 3.0)

			Convey("Then creation or calculation time positions the sample", func() {
				So(len(points), ShouldEqual, 2)
				So(points[0].Value, ShouldEqual, 2.0)
			})
		})

		Convey("When only a percentage score is present", func() {
			samples := []model.ScoreSample{
				{PercentageScore: null.Float64From(91), DueDate: "2024-03-05T09:00:00Z"},
				{DueDate: "2024-03-06T09:00:00Z", CalculatedAt: "2024-03-01T00:00:00Z"},
				snapshot(1.0, "2024-03-12T09:00:00Z", ""),
			}
			points := progression.ToWeeklySeries(samples, 1.0)

			Convey("Then it is converted through the GPA scale", func() {
				So(points[0].Value, ShouldEqual, 3.5)
			})
		})

		Convey("When called repeatedly or with shuffled input", func() {
			samples := []model.ScoreSample{
				snapshot(2.0, "2024-03-05T09:00:00Z", "2024-03-05T09:00:00Z"),
				snapshot(2.4, "2024-03-05T09:00:00Z", "2024-03-05T09:00:00Z"),
				snapshot(3.0, "2024-03-12T09:00:00Z", ""),
				snapshot(3.3, "2024-03-20T09:00:00Z", ""),
			}
			reversed := make([]model.ScoreSample, len(samples))
			for i, s := range samples {
				reversed[len(samples)-1-i] = s
			}

			first := progression.ToWeeklySeries(samples, 3.4)
			second := progression.ToWeeklySeries(samples, 3.4)
			shuffled := progression.ToWeeklySeries(reversed, 3.4)

			Convey("Then the output is identical", func() {
				So(second, ShouldResemble, first)
				So(shuffled, ShouldResemble, first)
			})

			Convey("Then equal-recency ties resolve the same way regardless of order", func() {
				So(first[0].Value, ShouldEqual, 2.4)
			})
		})
	})
}

func TestAggregatorLocation(t *testing.T) {
	Convey("Given an aggregator in a zone ahead of UTC", t, func() {
		loc := time.FixedZone("UTC+10", 10*3600)
		agg := progression.NewAggregator(progression.WithLocation(loc))

		Convey("When a sample is late Sunday UTC", func() {
			samples := []model.ScoreSample{snapshot(2.0, "2024-03-10T20:00:00Z", "")}
			points := agg.Weekly(samples, 2.0)

			Convey("Then it lands in the next local week", func() {
				So(points[0].WeekStart.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, loc)), ShouldBeTrue)
			})
		})

		Convey("When WithLocation receives nil", func() {
			utc := progression.NewAggregator(progression.WithLocation(nil))
			points := utc.Weekly([]model.ScoreSample{snapshot(2.0, "2024-03-10T20:00:00Z", "")}, 2.0)

			Convey("Then UTC is kept", func() {
				So(points[0].WeekStart, ShouldEqual, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
			})
		})
	})
}

func TestLatest(t *testing.T) {
	Convey("Given an aggregator", t, func() {
		agg := progression.NewAggregator()

		Convey("When no sample is datable", func() {
			_, ok := agg.Latest([]model.ScoreSample{{Value: null.Float64From(3)}})
			So(ok, ShouldBeFalse)
		})

		Convey("When samples were calculated out of due-date order", func() {
			v, ok := agg.Latest([]model.ScoreSample{
				snapshot(2.0, "2024-03-20", "2024-03-25T09:00:00Z"),
				snapshot(3.0, "2024-03-22", "2024-03-23T09:00:00Z"),
			})

			Convey("Then the most recently calculated one wins", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 2.0)
			})
		})
	})
}
