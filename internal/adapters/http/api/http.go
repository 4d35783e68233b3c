// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/time/rate"

	"github.com/fausterrex/gradegoal/internal/domain/dedupe"
	"github.com/fausterrex/gradegoal/internal/domain/model"
	"github.com/fausterrex/gradegoal/internal/domain/probability"
	"github.com/fausterrex/gradegoal/internal/domain/progression"
	"github.com/fausterrex/gradegoal/internal/domain/types"
	"github.com/fausterrex/gradegoal/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes an event for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, e model.GradeEvent) bool

	PollProgression(ctx context.Context, studentID, courseID string, current null.Float64, prev progression.State) (types.Progression, bool, error)
	Completion(ctx context.Context, studentID, courseID string) (types.Completion, error)
	PutGoal(ctx context.Context, g model.Goal) error
	GoalReports(ctx context.Context, studentID string) (types.GoalReports, error)
	Estimate(in probability.Input) float64
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	progressionHandler *ProgressionHandler
	goalsHandler       *GoalsHandler
	calculatorHandler  *CalculatorHandler

	eventsLimiter *rate.Limiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	responseLog.Store(&o.log)

	validate := newValidator()
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps, validate, o.log),
		progressionHandler: NewProgressionHandler(deps, o.log),
		goalsHandler:       NewGoalsHandler(deps, validate, o.log),
		calculatorHandler:  NewCalculatorHandler(deps, validate),
	}
	if o.rps > 0 {
		burst := o.burst
		if burst < 1 {
			burst = 1
		}
		s.eventsLimiter = rate.NewLimiter(rate.Limit(o.rps), burst)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /events", MetricsMiddleware(
		RateLimitMiddleware(s.eventsHandler.HandlePostEvent, s.eventsLimiter, "events"), "events"))
	mux.HandleFunc("GET /students/{studentID}/courses/{courseID}/progression",
		MetricsMiddleware(s.progressionHandler.HandleGetProgression, "progression"))
	mux.HandleFunc("GET /students/{studentID}/courses/{courseID}/completion",
		MetricsMiddleware(s.progressionHandler.HandleGetCompletion, "completion"))
	mux.HandleFunc("PUT /students/{studentID}/goals/{goalID}", MetricsMiddleware(s.goalsHandler.HandlePutGoal, "goals"))
	mux.HandleFunc("GET /students/{studentID}/goals", MetricsMiddleware(s.goalsHandler.HandleListGoals, "goals"))
	mux.HandleFunc("GET /gpa", MetricsMiddleware(s.calculatorHandler.HandleGPA, "gpa"))
	mux.HandleFunc("POST /probability", MetricsMiddleware(s.calculatorHandler.HandleProbability, "probability"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// responseLog receives response encoding failures; the last NewServer wins.
var responseLog atomic.Pointer[logger.Logger]

func responseLogger() logger.Logger {
	if l := responseLog.Load(); l != nil {
		return *l
	}
	return logger.Nop()
}

// writeJSON encodes v before committing the status so an unencodable body
// becomes a 500 rather than an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		responseLogger().Error(context.Background(), "encode response failed", logger.Error(err))
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{
			Code:    "internal_error",
			Message: http.StatusText(http.StatusInternalServerError),
		})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps err via classify and logs server-side failures.
func writeServiceError(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	status, code, wrapped := classify(op, err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, wrapped)
}

// newValidator reports field names as they appear on the wire.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// describeValidation turns the first validator failure into a short message.
func describeValidation(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err.Error()
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required", "required_if":
		return "missing " + fe.Field()
	case "oneof":
		return "invalid " + fe.Field() + "; must be one of: " + fe.Param()
	default:
		return "invalid " + fe.Field()
	}
}
