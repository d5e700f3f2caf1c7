package models

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the engine can produce.
// Callers branch with errors.Is; the concrete types below carry detail.
var (
	ErrInvalidRange         = errors.New("value outside its valid range")
	ErrNotFound             = errors.New("referenced entity not found")
	ErrConflict             = errors.New("operation conflicts with current state")
	ErrDanglingReference    = errors.New("reference no longer resolves")
	ErrPartialSourceFailure = errors.New("aggregation source unavailable")
)

// InvalidRangeError reports a numeric input outside its documented domain.
// Out-of-range values are rejected, never silently clamped.
type InvalidRangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("%s = %g outside [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// NotFoundError reports an unresolved entity reference.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports an operation rejected because of current state,
// e.g. a recalculation pass already running or a dependency cycle.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// DanglingReferenceError reports a risk record pointing at an entity that
// no longer resolves. Surfaced per record in bulk passes, never fatal to
// the pass itself.
type DanglingReferenceError struct {
	RecordCode string
	Entity     string
	ID         string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("risk record %q references missing %s %q", e.RecordCode, e.Entity, e.ID)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

// SourceFailureError reports one unavailable input of a multi-source
// aggregation. The affected field degrades to its zero value.
type SourceFailureError struct {
	Source string
	Err    error
}

func (e *SourceFailureError) Error() string {
	return fmt.Sprintf("source %q unavailable: %v", e.Source, e.Err)
}

func (e *SourceFailureError) Unwrap() error { return ErrPartialSourceFailure }
