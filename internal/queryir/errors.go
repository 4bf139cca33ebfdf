package queryir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes request failures. The same vocabulary is used by
// decoding here and by the engine at execution time.
type ErrorCode string

const (
	// ErrCodeInvalidTarget indicates a target other than "knowledge_item".
	ErrCodeInvalidTarget ErrorCode = "INVALID_TARGET"

	// ErrCodeInvalidAction indicates an unsupported action, or a non-GET batch member.
	ErrCodeInvalidAction ErrorCode = "INVALID_ACTION"

	// ErrCodeMissingConfigPath indicates a generated CREATE without a config path.
	ErrCodeMissingConfigPath ErrorCode = "MISSING_CONFIG_PATH"

	// ErrCodeInvalidCreateMethod indicates a CREATE with neither processor nor value.
	ErrCodeInvalidCreateMethod ErrorCode = "INVALID_CREATE_METHOD"

	// ErrCodeNoMatchingItems indicates an UPDATE whose conditions matched nothing.
	ErrCodeNoMatchingItems ErrorCode = "NO_MATCHING_ITEMS"

	// ErrCodeFieldOperation indicates CONTAINS or STARTS_WITH on an incompatible field.
	ErrCodeFieldOperation ErrorCode = "FIELD_OPERATION"

	// ErrCodeInvalidRequest indicates a malformed request shape.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeImmutableField indicates an UPDATE that tries to change id.
	ErrCodeImmutableField ErrorCode = "IMMUTABLE_FIELD"

	// ErrCodeGenerationFailed indicates the content generator failed.
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"

	// ErrCodeConfigInvalid indicates an unreadable or invalid generator config.
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// DecodeError is returned when a request object cannot be turned into a Request.
type DecodeError struct {
	Code    ErrorCode
	Field   string // Dotted path of the offending field, if any
	Message string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func decodeErr(code ErrorCode, field, format string, args ...any) *DecodeError {
	return &DecodeError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// DecodeErrorCode returns the code of a wrapped *DecodeError, or "".
func DecodeErrorCode(err error) ErrorCode {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
