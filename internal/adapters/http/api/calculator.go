package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/model"
	"github.com/fausterrex/gradegoal/internal/domain/probability"
	"github.com/fausterrex/gradegoal/internal/domain/types"
)

const maxCalcBytes = 4 << 10

// Estimator runs the stateless probability heuristic.
type Estimator interface {
	Estimate(in probability.Input) float64
}

type probabilityRequest struct {
	Current          *float64     `json:"current" validate:"required"`
	Target           *float64     `json:"target" validate:"required"`
	GoalType         string       `json:"goal_type"`
	TargetDate       null.Time    `json:"target_date"`
	CourseCompletion null.Float64 `json:"course_completion"`
}

// CalculatorHandler exposes the pure engine functions.
type CalculatorHandler struct {
	estimator Estimator
	validate  *validator.Validate
}

// NewCalculatorHandler creates a new calculator handler.
func NewCalculatorHandler(estimator Estimator, validate *validator.Validate) *CalculatorHandler {
	return &CalculatorHandler{estimator: estimator, validate: validate}
}

// HandleGPA handles GET /gpa?percent=x.
func (h *CalculatorHandler) HandleGPA(w http.ResponseWriter, r *http.Request) {
	const op = "api.gpa"
	pct, err := parseOptionalFloat(r.URL.Query().Get("percent"))
	if err != nil || !pct.Valid {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid percent")))
		return
	}
	writeJSON(w, http.StatusOK, types.NewGPA(pct.Float64))
}

// HandleProbability handles POST /probability. Unknown goal types are passed
// through and take the neutral modifier.
func (h *CalculatorHandler) HandleProbability(w http.ResponseWriter, r *http.Request) {
	const op = "api.probability"
	var req probabilityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCalcBytes)).Decode(&req); err != nil {
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
		gt = model.GoalType(req.GoalType)
	}
	p := h.estimator.Estimate(probability.Input{
		Current:          *req.Current,
		Target:           *req.Target,
		GoalType:         gt,
		TargetDate:       req.TargetDate,
		CourseCompletion: req.CourseCompletion,
	})
	writeJSON(w, http.StatusOK, types.Probability{Probability: p})
}
