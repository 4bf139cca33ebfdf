package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
)

// RuntimeError represents an error detected while executing a request.
//
// Runtime errors include:
//   - Invalid target: the request addresses something other than knowledge items
//   - Field operation: CONTAINS or STARTS_WITH applied to an incompatible field
//   - No matching items: an UPDATE matched nothing
//   - Invalid create method / missing config path: a CREATE names no usable
//     content source
//
// Codes added on top of the DSL's own set:
//   - Invalid request: a structurally wrong request (UPDATE without
//     conditions, batch members without distinct aliases)
//   - Immutable field: an UPDATE tries to set id
//   - Config invalid: the generator config cannot be read or fails its schema
//   - Generation failed: the content generator returned an error
//
// Every runtime error is fatal to its operation; nothing is retried and no
// partial result is returned.
type RuntimeError struct {
	// Code identifies the error category.
	Code queryir.ErrorCode

	// Message is a human-readable description.
	Message string

	// Field names the condition field or request field involved, if any.
	Field string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field=%s)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func newError(code queryir.ErrorCode, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the error code carried by err, whether it came from
// decoding (*queryir.DecodeError) or execution (*RuntimeError).
// It returns "" for any other error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) queryir.ErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return queryir.DecodeErrorCode(err)
}

// IsCode returns true if err carries the given code.
func IsCode(err error, code queryir.ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// NewInvalidTargetError creates a RuntimeError for an unsupported target.
func NewInvalidTargetError(target string) *RuntimeError {
	return &RuntimeError{
		Code:    queryir.ErrCodeInvalidTarget,
		Message: fmt.Sprintf("invalid target %q: only %q is supported", target, queryir.TargetKnowledgeItem),
		Field:   "target",
		Details: map[string]string{"target": target},
	}
}

// NewFieldOperationError creates a RuntimeError for an operator applied to
// a field value that does not support it.
func NewFieldOperationError(c queryir.Condition, fieldKind string) *RuntimeError {
	return &RuntimeError{
		Code: queryir.ErrCodeFieldOperation,
		Message: fmt.Sprintf("%s cannot be applied to a %s field with a %s value",
			c.Operator, fieldKind, ir.KindOf(c.Value)),
		Field: c.Field,
		Details: map[string]string{
			"operator":   string(c.Operator),
			"field_kind": fieldKind,
		},
	}
}

// NewNoMatchingItemsError creates a RuntimeError for an UPDATE that matched nothing.
func NewNoMatchingItemsError(conditions int) *RuntimeError {
	return &RuntimeError{
		Code:    queryir.ErrCodeNoMatchingItems,
		Message: "no items matched the update conditions",
		Details: map[string]string{"conditions": fmt.Sprintf("%d", conditions)},
	}
}
