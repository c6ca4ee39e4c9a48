package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Client-input errors, surfaced synchronously at enqueue time. Judging
// outcomes (wrong answer, limits, crashes) are never errors; they only
// ever appear as a terminal submission status.
var (
	ErrContestNotFound     = errors.New("contest not found")
	ErrProblemNotFound     = errors.New("problem not found")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrContestNotActive    = errors.New("contest is not active")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrEmptySubmission     = errors.New("submission code is empty")

	ErrInternalServer = errors.New("internal server error")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrContestNotFound),
		errors.Is(err, ErrProblemNotFound),
		errors.Is(err, ErrSubmissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrContestNotActive),
		errors.Is(err, ErrUnsupportedLanguage),
		errors.Is(err, ErrEmptySubmission):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
