package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fausterrex/gradegoal/internal/adapters/repository"
	"github.com/fausterrex/gradegoal/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrBackpressure = errors.New("backpressure")
	ErrRateLimited  = errors.New("rate limited")
	ErrInternal     = errors.New("internal error")
)

// NewKind tags kind with the operation that produced it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags kind with op and keeps err as the cause.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// classify maps service errors to an HTTP status and error code.
func classify(op string, err error) (int, string, error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err)
	case errors.Is(err, repository.ErrInvalidGoal),
		errors.Is(err, repository.ErrInvalidEvent),
		errors.Is(err, model.ErrUnknownGoalType):
		return http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err)
	default:
		return http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err)
	}
}
