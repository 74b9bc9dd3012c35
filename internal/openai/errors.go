package openai

import (
	"encoding/json"
	"fmt"

	"github.com/tasklens/tasklens/internal/domain"
)

// ErrorResponse represents an API error response body.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError contains the upstream error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ParseErrorResponse extracts the upstream error message from a non-200
// response body. Returns an empty string when the body is not the standard
// error envelope.
func ParseErrorResponse(body []byte) string {
	var resp ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == nil {
		return ""
	}
	return resp.Error.Message
}

// classifyStatusError maps a non-200 upstream status to the canonical failure
// class: 4xx is a client error and never retried, anything else is a
// retryable server error.
func classifyStatusError(status int, body []byte) *domain.PipelineError {
	message := ParseErrorResponse(body)
	if message == "" {
		message = fmt.Sprintf("upstream returned status %d", status)
	}

	if status >= 400 && status < 500 {
		return domain.ErrUpstreamClient(status, message)
	}
	return domain.ErrUpstreamServer(status, message)
}

func timeoutError(detail string) *domain.PipelineError {
	return domain.ErrUpstreamTimeout(fmt.Sprintf("upstream call timed out: %s", detail))
}
