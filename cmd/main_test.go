package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/volatiletech/null/v8"

	service "github.com/fausterrex/gradegoal/internal/app"
	"github.com/fausterrex/gradegoal/internal/config"
	"github.com/fausterrex/gradegoal/internal/domain/types"
	"github.com/fausterrex/gradegoal/pkg/logger"
)

func runCLI(stdin string, args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCalcCommands(t *testing.T) {
	convey.Convey("Given the calc command", t, func() {
		convey.Convey("When converting a percentage", func() {
			out, err := runCLI("", "calc", "gpa", "--percent", "91")

			convey.So(err, convey.ShouldBeNil)
			var got types.GPA
			convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)
			convey.So(got, convey.ShouldResemble, types.GPA{Percent: null.Float64From(91), GPA: 3.5})
		})

		convey.Convey("When the percentage flag is missing", func() {
			_, err := runCLI("", "calc", "gpa")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When estimating a reached course goal", func() {
			out, err := runCLI("", "calc", "probability", "--current", "3.6", "--target", "4", "--type", "COURSE_GRADE")

			convey.So(err, convey.ShouldBeNil)
			var got types.Probability
			convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)
			convey.So(got.Probability, convey.ShouldEqual, 100.0)
		})

		convey.Convey("When the target date is malformed", func() {
			_, err := runCLI("", "calc", "probability", "--current", "1", "--target", "4", "--target-date", "soon")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When bucketing snapshots from stdin", func() {
			in := `[
				{"current_grade": 2.5, "calculated_at": "2025-09-02T10:00:00Z"},
				{"current_grade": 3.0, "calculated_at": "2025-09-04T10:00:00Z"},
				{"percentage_score": 91, "calculated_at": "2025-09-10T10:00:00Z"}
			]`
			out, err := runCLI(in, "calc", "series")

			convey.So(err, convey.ShouldBeNil)
			var got types.Progression
			convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)
			convey.So(got.Weeks, convey.ShouldHaveLength, 2)
			convey.So(got.Weeks[0].Value, convey.ShouldEqual, 3.0)
			convey.So(got.Weeks[0].SampleCount, convey.ShouldEqual, 2)
			convey.So(got.Weeks[1].Value, convey.ShouldEqual, 3.5)
			convey.So(got.Current, convey.ShouldEqual, 3.5)
			convey.So(got.Fingerprint, convey.ShouldNotBeEmpty)
			convey.So(got.Fingerprint, convey.ShouldNotContainSubstring, `"`)
		})

		convey.Convey("When computing completion from a file", func() {
			path := filepath.Join(t.TempDir(), "categories.json")
			body := `[{"id":"quiz","assessments":[{"id":"q1","score":9},{"id":"q2","score":null},{"id":"q3","score":0}]}]`
			convey.So(os.WriteFile(path, []byte(body), 0o600), convey.ShouldBeNil)

			out, err := runCLI("", "calc", "completion", "--input", path)

			convey.So(err, convey.ShouldBeNil)
			var got types.Completion
			convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)
			convey.So(got.Percent, convey.ShouldAlmostEqual, 33.333, 0.001)
		})

		convey.Convey("When stdin is empty", func() {
			_, err := runCLI("", "calc", "completion")
			convey.So(err, convey.ShouldWrap, errNoInput)
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a started service behind the full mux", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2), service.WithLogger(logger.Nop()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		cfg := config.New()
		cfg.RateLimitRPS = 0
		srv := httptest.NewServer(newMux(svc, cfg, logger.Nop()))
		defer srv.Close()

		convey.Convey("When a snapshot is ingested", func() {
			body := `{"event_id":"e1","student_id":"s1","course_id":"math","kind":"grade_snapshot",
				"sample":{"current_grade":3.2,"calculated_at":"2025-09-02T10:00:00Z"}}`
			resp, err := http.Post(srv.URL+"/events", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)

			var etag string
			deadline := time.Now().Add(3 * time.Second)
			for time.Now().Before(deadline) {
				r, err := http.Get(srv.URL + "/students/s1/courses/math/progression")
				if err == nil {
					_ = r.Body.Close()
					if r.StatusCode == http.StatusOK {
						etag = r.Header.Get("ETag")
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
			}

			convey.Convey("Then polling with its ETag should be not modified", func() {
				convey.So(etag, convey.ShouldNotBeEmpty)
				req, _ := http.NewRequest(http.MethodGet, srv.URL+"/students/s1/courses/math/progression", http.NoBody)
				req.Header.Set("If-None-Match", etag)
				r, err := http.DefaultClient.Do(req)
				convey.So(err, convey.ShouldBeNil)
				_ = r.Body.Close()
				convey.So(r.StatusCode, convey.ShouldEqual, http.StatusNotModified)
			})
		})

		convey.Convey("Then the docs routes should be mounted", func() {
			r, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = r.Body.Close()
			convey.So(r.StatusCode, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestServe(t *testing.T) {
	convey.Convey("Given serve", t, func() {
		convey.Convey("When the configuration is invalid", func() {
			_ = os.Setenv("GRADEGOAL_QUEUE_SIZE", "0")
			defer func() { _ = os.Unsetenv("GRADEGOAL_QUEUE_SIZE") }()

			err := serve(context.Background())

			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("When the context is cancelled", func() {
			_ = os.Setenv("GRADEGOAL_ADDR", "127.0.0.1:0")
			_ = os.Setenv("GRADEGOAL_WORKER_COUNT", "1")
			defer func() {
				_ = os.Unsetenv("GRADEGOAL_ADDR")
				_ = os.Unsetenv("GRADEGOAL_WORKER_COUNT")
			}()
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			convey.So(serve(ctx), convey.ShouldBeNil)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metric updaters", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		convey.So(func() {
			updateServiceMetrics(map[string]any{"workerCount": 4, "queueLength": 5, "queueSize": 10})
			updateServiceMetrics(map[string]any{})
		}, convey.ShouldNotPanic)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
	})
}
