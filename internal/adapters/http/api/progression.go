package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/progression"
	"github.com/fausterrex/gradegoal/internal/domain/types"
	"github.com/fausterrex/gradegoal/pkg/logger"
)

// ProgressionDependencies defines the reads behind the course chart endpoints.
type ProgressionDependencies interface {
	PollProgression(ctx context.Context, studentID, courseID string, current null.Float64, prev progression.State) (types.Progression, bool, error)
	Completion(ctx context.Context, studentID, courseID string) (types.Completion, error)
}

// ProgressionHandler serves weekly series and completion of a course.
type ProgressionHandler struct {
	deps ProgressionDependencies
	log  logger.Logger
}

// NewProgressionHandler creates a new progression handler.
func NewProgressionHandler(deps ProgressionDependencies, log logger.Logger) *ProgressionHandler {
	return &ProgressionHandler{deps: deps, log: log}
}

// HandleGetProgression handles GET /students/{studentID}/courses/{courseID}/progression.
// The response ETag is the series fingerprint; a matching If-None-Match
// yields 304 so pollers only re-render on change.
func (h *ProgressionHandler) HandleGetProgression(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_progression"
	current, err := parseOptionalFloat(r.URL.Query().Get("current"))
	if err != nil || (current.Valid && !finite(current.Float64)) {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("invalid current; must be a finite number")))
		return
	}
	prev, polled := progression.StateFromETag(r.Header.Get("If-None-Match"))

	p, changed, err := h.deps.PollProgression(r.Context(), r.PathValue("studentID"), r.PathValue("courseID"), current, prev)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	if st, ok := progression.StateFromETag(p.Fingerprint); ok {
		w.Header().Set("ETag", st.ETag())
	}
	w.Header().Set("Cache-Control", "no-cache")
	if polled && !changed {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGetCompletion handles GET /students/{studentID}/courses/{courseID}/completion.
func (h *ProgressionHandler) HandleGetCompletion(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_completion"
	c, err := h.deps.Completion(r.Context(), r.PathValue("studentID"), r.PathValue("courseID"))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// parseOptionalFloat accepts NaN and Inf; callers decide whether they can
// carry them.
func parseOptionalFloat(s string) (null.Float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Float64{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float64{}, err
	}
	return null.Float64From(v), nil
}
