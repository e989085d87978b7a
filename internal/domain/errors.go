package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

// ValidationError carries every field-level failure found in one pass.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// NewValidationError returns nil for an empty list so callers can write
// `if err := domain.NewValidationError(errs); err != nil`.
func NewValidationError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// TransitionError names the rejected from/to pair. Allowed lists the legal
// targets from From.
type TransitionError struct {
	Entity   string
	From     string
	To       string
	Allowed  []string
	Terminal bool
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("illegal %s status transition from %s to %s", e.Entity, e.From, e.To)
	switch {
	case e.Terminal:
		return msg + ": " + e.From + " is terminal"
	case len(e.Allowed) > 0:
		return msg + " (allowed: " + strings.Join(e.Allowed, ", ") + ")"
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// NotFoundf wraps ErrNotFound with a description of the missing record.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Conflictf wraps ErrConflict with a description of the lost race.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// ValidationMessages flattens validation-style errors into field messages.
// ok is false for errors of any other kind.
func ValidationMessages(err error) (msgs []string, ok bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Errors, true
	}
	var terr *TransitionError
	if errors.As(err, &terr) {
		return []string{terr.Error()}, true
	}
	return nil, false
}
