package model_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	model "github.com/fausterrex/gradegoal/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
	"github.com/volatiletech/null/v8"
)

func TestAssessmentScored(t *testing.T) {
	convey.Convey("Given assessments with various scores", t, func() {
		convey.Convey("Then only defined strictly positive scores count as scored", func() {
			convey.So(model.Assessment{Score: null.Float64From(85)}.Scored(), convey.ShouldBeTrue)
			convey.So(model.Assessment{Score: null.Float64From(0.5)}.Scored(), convey.ShouldBeTrue)
			convey.So(model.Assessment{Score: null.Float64From(0)}.Scored(), convey.ShouldBeFalse)
			convey.So(model.Assessment{Score: null.Float64From(-3)}.Scored(), convey.ShouldBeFalse)
			convey.So(model.Assessment{Score: null.Float64From(math.NaN())}.Scored(), convey.ShouldBeFalse)
			convey.So(model.Assessment{}.Scored(), convey.ShouldBeFalse)
		})
	})

	convey.Convey("Given an assessment decoded from JSON", t, func() {
		convey.Convey("When the score is null", func() {
			var a model.Assessment
			err := json.Unmarshal([]byte(`{"id":"a1","category_id":"c1","score":null}`), &a)

			convey.Convey("Then it decodes as an unscored assessment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(a.Score.Valid, convey.ShouldBeFalse)
				convey.So(a.Scored(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the score is a number", func() {
			var a model.Assessment
			err := json.Unmarshal([]byte(`{"id":"a1","category_id":"c1","score":92.5}`), &a)

			convey.Convey("Then it decodes as scored", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(a.Score.Float64, convey.ShouldEqual, 92.5)
				convey.So(a.Scored(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestParseGoalType(t *testing.T) {
	convey.Convey("Given wire goal type values", t, func() {
		convey.Convey("Then the backend spellings parse", func() {
			gt, err := model.ParseGoalType("COURSE_GRADE")
			convey.So(err, convey.ShouldBeNil)
			convey.So(gt, convey.ShouldEqual, model.GoalCourseGrade)

			gt, err = model.ParseGoalType(" semester_gpa ")
			convey.So(err, convey.ShouldBeNil)
			convey.So(gt, convey.ShouldEqual, model.GoalSemesterGPA)

			gt, err = model.ParseGoalType("CUMMULATIVE_GPA")
			convey.So(err, convey.ShouldBeNil)
			convey.So(gt, convey.ShouldEqual, model.GoalCumulativeGPA)
		})

		convey.Convey("Then the corrected cumulative spelling maps to the wire spelling", func() {
			gt, err := model.ParseGoalType("CUMULATIVE_GPA")
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(gt), convey.ShouldEqual, "CUMMULATIVE_GPA")
		})

		convey.Convey("Then unknown values are rejected", func() {
			_, err := model.ParseGoalType("WEEKLY_STREAK")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, model.ErrUnknownGoalType), convey.ShouldBeTrue)
			convey.So(model.GoalType("WEEKLY_STREAK").Valid(), convey.ShouldBeFalse)
		})
	})
}

func TestParseTimestamp(t *testing.T) {
	convey.Convey("Given backend timestamp strings", t, func() {
		convey.Convey("When the value carries an offset", func() {
			ts, ok := model.ParseTimestamp("2024-03-05T10:30:00+02:00", nil)

			convey.Convey("Then the offset is honoured", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(ts.UTC(), convey.ShouldEqual, time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC))
			})
		})

		convey.Convey("When the value has fractional seconds and Z", func() {
			ts, ok := model.ParseTimestamp("2024-03-05T10:30:00.123Z", nil)

			convey.Convey("Then it parses", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(ts.Nanosecond(), convey.ShouldEqual, 123_000_000)
			})
		})

		convey.Convey("When the value has no offset", func() {
			loc := time.FixedZone("UTC+8", 8*3600)
			ts, ok := model.ParseTimestamp("2024-03-05T10:30:00", loc)

			convey.Convey("Then it is read in the given location", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(ts.Location(), convey.ShouldEqual, loc)
				convey.So(ts.Hour(), convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When the value is date only", func() {
			ts, ok := model.ParseTimestamp("2024-03-05", nil)

			convey.Convey("Then it parses to midnight UTC", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(ts, convey.ShouldEqual, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
			})
		})

		convey.Convey("When the value is empty or garbage", func() {
			_, okEmpty := model.ParseTimestamp("  ", nil)
			_, okBad := model.ParseTimestamp("next tuesday", nil)

			convey.Convey("Then it is reported as unparseable", func() {
				convey.So(okEmpty, convey.ShouldBeFalse)
				convey.So(okBad, convey.ShouldBeFalse)
			})
		})
	})
}
