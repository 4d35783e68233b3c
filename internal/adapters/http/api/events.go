package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/dedupe"
	"github.com/fausterrex/gradegoal/internal/domain/model"
	"github.com/fausterrex/gradegoal/internal/domain/types"
	"github.com/fausterrex/gradegoal/pkg/logger"
)

// maxEventBytes bounds a single POST /events body.
const maxEventBytes = 64 << 10

// eventNamespace scopes the deterministic IDs given to events without one.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("gradegoal/events"))

// EventDependencies defines the interface for event processing dependencies.
type EventDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, e model.GradeEvent) bool
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	EventID    string             `json:"event_id,omitempty" validate:"omitempty,max=128"`
	StudentID  string             `json:"student_id" validate:"required,max=128"`
	CourseID   string             `json:"course_id" validate:"required,max=128"`
	Kind       string             `json:"kind" validate:"required,oneof=grade_snapshot assessment"`
	Sample     *sampleRequest     `json:"sample,omitempty" validate:"required_if=Kind grade_snapshot"`
	Assessment *assessmentRequest `json:"assessment,omitempty" validate:"required_if=Kind assessment"`
}

type sampleRequest struct {
	CurrentGrade    null.Float64 `json:"current_grade"`
	PercentageScore null.Float64 `json:"percentage_score"`
	DueDate         string       `json:"due_date,omitempty"`
	CreatedAt       string       `json:"created_at,omitempty"`
	CalculatedAt    string       `json:"calculated_at,omitempty"`
}

type assessmentRequest struct {
	ID           string       `json:"id" validate:"required,max=128"`
	CategoryID   string       `json:"category_id" validate:"required,max=128"`
	CategoryName string       `json:"category_name,omitempty"`
	Score        null.Float64 `json:"score"`
}

// eventID returns the caller's id, or a name-based UUID of the payload so
// that blind retries of the same record deduplicate.
func (e *eventRequest) eventID() string {
	if id := strings.TrimSpace(e.EventID); id != "" {
		return id
	}
	canonical := *e
	canonical.EventID = ""
	b, _ := json.Marshal(canonical)
	return uuid.NewSHA1(eventNamespace, b).String()
}

func (e *eventRequest) toEvent() model.GradeEvent {
	ev := model.GradeEvent{
		EventID:   e.eventID(),
		StudentID: e.StudentID,
		CourseID:  e.CourseID,
		Kind:      model.EventKind(e.Kind),
	}
	switch ev.Kind {
	case model.KindGradeSnapshot:
		ev.Sample = model.ScoreSample{
			Value:           e.Sample.CurrentGrade,
			PercentageScore: e.Sample.PercentageScore,
			DueDate:         e.Sample.DueDate,
			CreatedAt:       e.Sample.CreatedAt,
			CalculatedAt:    e.Sample.CalculatedAt,
		}
	case model.KindAssessment:
		ev.CategoryName = e.Assessment.CategoryName
		ev.Assessment = model.Assessment{
			ID:         e.Assessment.ID,
			CategoryID: e.Assessment.CategoryID,
			Score:      e.Assessment.Score,
		}
	}
	return ev
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps     EventDependencies
	validate *validator.Validate
	log      logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies, validate *validator.Validate, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, validate: validate, log: log}
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New(describeValidation(err))))
		return
	}
	ev := req.toEvent()

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), ev.EventID) {
		writeJSON(w, http.StatusOK, types.IngestStatus{Status: "duplicate", EventID: ev.EventID})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), ev); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), ev.EventID)
		h.log.Debug(r.Context(), "grade event refused", logger.String("event_id", ev.EventID))
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, types.IngestStatus{Status: "accepted", EventID: ev.EventID})
}
