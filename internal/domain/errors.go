// Package domain provides the canonical data types and error taxonomy for the
// TaskLens orchestration pipeline.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of a pipeline error.
type ErrorType string

const (
	// ErrorTypeInvalidInput indicates a malformed inbound request (empty or
	// oversized goal text, missing image payload).
	ErrorTypeInvalidInput ErrorType = "invalid_input"

	// ErrorTypeInvalidImage indicates the image payload could not be decoded.
	ErrorTypeInvalidImage ErrorType = "invalid_image"

	// ErrorTypeUpstreamClient indicates the remote model endpoint rejected the
	// request (4xx). Never retried.
	ErrorTypeUpstreamClient ErrorType = "upstream_client"

	// ErrorTypeUpstreamServer indicates a transient remote failure (5xx).
	ErrorTypeUpstreamServer ErrorType = "upstream_server"

	// ErrorTypeUpstreamTimeout indicates the remote call exceeded its deadline
	// or failed at the transport level.
	ErrorTypeUpstreamTimeout ErrorType = "upstream_timeout"

	// ErrorTypeToolLoopExceeded indicates the tool-call sub-protocol failed to
	// converge within its iteration bound.
	ErrorTypeToolLoopExceeded ErrorType = "tool_loop_exceeded"

	// ErrorTypeMalformedOutput indicates the model's final answer was not
	// parseable JSON.
	ErrorTypeMalformedOutput ErrorType = "malformed_output"

	// ErrorTypeSchemaValidation indicates the model's final answer parsed but
	// did not satisfy the structural contract.
	ErrorTypeSchemaValidation ErrorType = "schema_validation"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeInvalidImageData  ErrorCode = "invalid_image_data"
	ErrorCodeGoalLength        ErrorCode = "goal_length"
	ErrorCodeMissingField      ErrorCode = "missing_field"
	ErrorCodeWrongType         ErrorCode = "wrong_type"
	ErrorCodeOutOfRange        ErrorCode = "out_of_range"
	ErrorCodeBadEnumValue      ErrorCode = "bad_enum_value"
	ErrorCodeBadURL            ErrorCode = "bad_url"
	ErrorCodeBadSequence       ErrorCode = "bad_sequence"
	ErrorCodeWrongStepCount    ErrorCode = "wrong_step_count"
	ErrorCodeEmptyResponse     ErrorCode = "empty_response"
	ErrorCodeRetriesExhausted  ErrorCode = "retries_exhausted"
	ErrorCodeUnknownTool       ErrorCode = "unknown_tool"
	ErrorCodeIterationsReached ErrorCode = "iterations_reached"
)

// PipelineError is the canonical error returned by every component of the
// orchestration engine. Components never downgrade or mask each other's error
// types; only the HTTP front door maps them to status codes.
type PipelineError struct {
	// Type is the category of error.
	Type ErrorType `json:"type"`

	// Code is an optional specific error code.
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Param names the offending field for validation failures.
	Param string `json:"param,omitempty"`

	// UpstreamStatus is the HTTP status returned by the remote endpoint,
	// when the error originated there.
	UpstreamStatus int `json:"-"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Retryable reports whether the error class is transient and safe to retry.
func (e *PipelineError) Retryable() bool {
	switch e.Type {
	case ErrorTypeUpstreamServer, ErrorTypeUpstreamTimeout:
		return true
	default:
		return false
	}
}

// HTTPStatusCode returns the caller-facing HTTP status for this error.
func (e *PipelineError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidInput, ErrorTypeInvalidImage:
		return http.StatusBadRequest
	case ErrorTypeUpstreamClient, ErrorTypeUpstreamServer:
		return http.StatusServiceUnavailable
	case ErrorTypeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeToolLoopExceeded, ErrorTypeMalformedOutput, ErrorTypeSchemaValidation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorTypeOf returns the error's type label, or "internal" for errors that
// are not pipeline errors. Used for metrics labels.
func ErrorTypeOf(err error) string {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return string(perr.Type)
	}
	return "internal"
}

// NewPipelineError creates a new pipeline error.
func NewPipelineError(errType ErrorType, message string) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *PipelineError) WithCode(code ErrorCode) *PipelineError {
	e.Code = code
	return e
}

// WithParam adds a parameter name to the error.
func (e *PipelineError) WithParam(param string) *PipelineError {
	e.Param = param
	return e
}

// WithUpstreamStatus records the remote endpoint's HTTP status.
func (e *PipelineError) WithUpstreamStatus(status int) *PipelineError {
	e.UpstreamStatus = status
	return e
}

// Convenience constructors for common errors

// ErrInvalidInput creates an invalid request error.
func ErrInvalidInput(message string) *PipelineError {
	return NewPipelineError(ErrorTypeInvalidInput, message)
}

// ErrInvalidImage creates an image decode error.
func ErrInvalidImage(message string) *PipelineError {
	return NewPipelineError(ErrorTypeInvalidImage, message).
		WithCode(ErrorCodeInvalidImageData)
}

// ErrUpstreamClient creates a non-retryable upstream rejection error.
func ErrUpstreamClient(status int, message string) *PipelineError {
	return NewPipelineError(ErrorTypeUpstreamClient, message).
		WithUpstreamStatus(status)
}

// ErrUpstreamServer creates a retryable upstream failure error.
func ErrUpstreamServer(status int, message string) *PipelineError {
	return NewPipelineError(ErrorTypeUpstreamServer, message).
		WithUpstreamStatus(status)
}

// ErrUpstreamTimeout creates a retryable timeout error.
func ErrUpstreamTimeout(message string) *PipelineError {
	return NewPipelineError(ErrorTypeUpstreamTimeout, message)
}

// ErrToolLoopExceeded creates a tool loop non-convergence error.
func ErrToolLoopExceeded(iterations int) *PipelineError {
	return NewPipelineError(ErrorTypeToolLoopExceeded,
		fmt.Sprintf("tool-call loop did not converge after %d iterations", iterations)).
		WithCode(ErrorCodeIterationsReached)
}

// ErrMalformedOutput creates a model output parse error.
func ErrMalformedOutput(message string) *PipelineError {
	return NewPipelineError(ErrorTypeMalformedOutput, message)
}

// ErrSchemaValidation creates a field-level validation error.
func ErrSchemaValidation(field, constraint string) *PipelineError {
	return NewPipelineError(ErrorTypeSchemaValidation,
		fmt.Sprintf("field %q: %s", field, constraint)).
		WithParam(field)
}
