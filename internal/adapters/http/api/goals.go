package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/model"
	"github.com/fausterrex/gradegoal/internal/domain/types"
	"github.com/fausterrex/gradegoal/pkg/logger"
)

const maxGoalBytes = 16 << 10

// GoalsDependencies defines goal registration and resolution.
type GoalsDependencies interface {
	PutGoal(ctx context.Context, g model.Goal) error
	GoalReports(ctx context.Context, studentID string) (types.GoalReports, error)
}

type goalRequest struct {
	CourseID          string       `json:"course_id,omitempty" validate:"max=128"`
	GoalType          string       `json:"goal_type" validate:"required"`
	TargetValue       *float64     `json:"target_value" validate:"required"`
	CurrentValue      float64      `json:"current_value"`
	TargetDate        null.Time    `json:"target_date"`
	IsCourseCompleted bool         `json:"is_course_completed"`
	IsAchieved        bool         `json:"is_achieved"`
	AISuccessRate     null.Float64 `json:"ai_success_rate"`
}

// GoalsHandler handles goal requests.
type GoalsHandler struct {
	deps     GoalsDependencies
	validate *validator.Validate
	log      logger.Logger
}

// NewGoalsHandler creates a new goals handler.
func NewGoalsHandler(deps GoalsDependencies, validate *validator.Validate, log logger.Logger) *GoalsHandler {
	return &GoalsHandler{deps: deps, validate: validate, log: log}
}

// HandlePutGoal handles PUT /students/{studentID}/goals/{goalID}.
func (h *GoalsHandler) HandlePutGoal(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_goal"
	var req goalRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGoalBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New(describeValidation(err))))
		return
	}
	gt, err := model.ParseGoalType(req.GoalType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	g := model.Goal{
		ID:                r.PathValue("goalID"),
		StudentID:         r.PathValue("studentID"),
		CourseID:          req.CourseID,
		Type:              gt,
		TargetValue:       *req.TargetValue,
		CurrentValue:      req.CurrentValue,
		TargetDate:        req.TargetDate,
		IsCourseCompleted: req.IsCourseCompleted,
		IsAchieved:        req.IsAchieved,
		AISuccessRate:     req.AISuccessRate,
	}
	if err := h.deps.PutGoal(r.Context(), g); err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleListGoals handles GET /students/{studentID}/goals.
func (h *GoalsHandler) HandleListGoals(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_goals"
	reports, err := h.deps.GoalReports(r.Context(), r.PathValue("studentID"))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}
