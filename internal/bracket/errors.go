package bracket

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ValidationError is returned for malformed input. No state was changed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// StateConflictError is returned when a tournament or match is not in the
// state an action requires. The caller should re-fetch and retry.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string {
	return "state conflict: " + e.Reason
}

// StructuralError means a bracket graph is invalid. Generation aborts and
// nothing is persisted.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "invalid bracket structure: " + e.Reason
}

// CorrectionConflictError is raised when a score correction would have to
// unwind matches that already progressed. It needs an operator.
type CorrectionConflictError struct {
	MatchID uuid.UUID
	Reason  string
}

func (e *CorrectionConflictError) Error() string {
	return fmt.Sprintf("correction of match %s needs manual resolution: %s", e.MatchID, e.Reason)
}

func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &StateConflictError{Reason: fmt.Sprintf(format, args...)}
}

func Structuralf(format string, args ...any) error {
	return &StructuralError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsStateConflict(err error) bool {
	var target *StateConflictError
	return errors.As(err, &target)
}

func IsStructural(err error) bool {
	var target *StructuralError
	return errors.As(err, &target)
}

func IsCorrectionConflict(err error) bool {
	var target *CorrectionConflictError
	return errors.As(err, &target)
}
