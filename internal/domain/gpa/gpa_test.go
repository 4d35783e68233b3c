package gpa_test

import (
	"math"
	"testing"

	"github.com/fausterrex/gradegoal/internal/domain/gpa"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/volatiletech/null/v8"
)

func TestFromPercentage(t *testing.T) {
	Convey("Given the percentage to GPA converter", t, func() {
		Convey("When converting values on either side of each band edge", func() {
			cases := []struct {
				percent float64
				want    float64
			}{
				{59.4, 0.00},
				{59.5, 1.00},
				{65.4, 1.00},
				{65.5, 1.50},
				{71.4, 1.50},
				{71.5, 2.00},
				{77.4, 2.00},
				{77.5, 2.50},
				{83.4, 2.50},
				{83.5, 3.00},
				{89.4, 3.00},
				{89.5, 3.50},
				{95.4, 3.50},
				{95.5, 4.00},
				{100, 4.00},
			}

			Convey("Then lower bounds are inclusive", func() {
				for _, c := range cases {
					So(gpa.FromPercentage(c.percent), ShouldEqual, c.want)
				}
			})
		})

		Convey("When the input is out of range", func() {
			Convey("Then it still lands on a band", func() {
				So(gpa.FromPercentage(-20), ShouldEqual, 0.0)
				So(gpa.FromPercentage(0), ShouldEqual, 0.0)
				So(gpa.FromPercentage(140), ShouldEqual, 4.0)
			})
		})

		Convey("When the input is NaN or null", func() {
			Convey("Then it converts to zero", func() {
				So(gpa.FromPercentage(math.NaN()), ShouldEqual, 0.0)
				So(gpa.FromNullable(null.Float64{}), ShouldEqual, 0.0)
				So(gpa.FromNullable(null.Float64From(math.NaN())), ShouldEqual, 0.0)
			})
		})

		Convey("When a nullable value is present", func() {
			Convey("Then it converts like a plain percentage", func() {
				So(gpa.FromNullable(null.Float64From(88)), ShouldEqual, 3.0)
			})
		})

		Convey("When the output is fed back through the converter", func() {
			Convey("Then it settles on zero without error", func() {
				v := 97.0
				for i := 0; i < 5; i++ {
					v = gpa.FromPercentage(v)
				}
				So(v, ShouldEqual, 0.0)
			})
		})
	})
}

func TestBands(t *testing.T) {
	Convey("Given the band table", t, func() {
		b := gpa.Bands()

		Convey("Then it lists seven bands highest first", func() {
			So(len(b), ShouldEqual, 7)
			So(b[0].GPA, ShouldEqual, 4.0)
			So(b[6].MinPercent, ShouldEqual, 59.5)
		})

		Convey("Then mutating the copy does not affect conversion", func() {
			b[0].GPA = 9
			So(gpa.FromPercentage(99), ShouldEqual, 4.0)
		})
	})
}

func TestNormalizeAndClamp(t *testing.T) {
	Convey("Given GPA normalisation helpers", t, func() {
		Convey("Then values already on the GPA scale pass through", func() {
			So(gpa.Normalize(3.2), ShouldEqual, 3.2)
			So(gpa.Normalize(4.0), ShouldEqual, 4.0)
		})

		Convey("Then percentage values are converted", func() {
			So(gpa.Normalize(90), ShouldEqual, 3.5)
		})

		Convey("Then clamping bounds to the scale", func() {
			So(gpa.Clamp(-1), ShouldEqual, 0.0)
			So(gpa.Clamp(5), ShouldEqual, 4.0)
			So(gpa.Clamp(2.75), ShouldEqual, 2.75)
			So(gpa.Clamp(math.NaN()), ShouldEqual, 0.0)
		})
	})
}
