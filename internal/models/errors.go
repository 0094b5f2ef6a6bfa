package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidStatus = errors.New("invalid run status")
	ErrParse         = errors.New("parse error")
	ErrMissingField  = errors.New("missing field")

	ErrNoInfo  = errors.New("run has no info")
	ErrNoData  = errors.New("run has no data")
	ErrNoRunID = errors.New("run info has no run_id")
)

// InvalidStatusError is returned when a status string is not one of the
// accepted run statuses.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	accepted := make([]string, len(runStatuses))
	for i, s := range runStatuses {
		accepted[i] = string(s)
	}
	return fmt.Sprintf("invalid run status: %q (valid: %s)", e.Value, strings.Join(accepted, ", "))
}

func (e *InvalidStatusError) Is(target error) bool {
	return target == ErrInvalidStatus
}

// ParseError is returned when a field cannot be coerced to its expected type.
type ParseError struct {
	Field string
	Value any
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse %s (%v): %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("failed to parse %s (%v)", e.Field, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// MissingFieldError is returned when a required key is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
