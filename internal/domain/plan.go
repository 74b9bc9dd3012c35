package domain

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Goal length bounds for inbound requests.
const (
	GoalMinLength = 1
	GoalMaxLength = 500
)

// PlanRequest is the inbound request to the orchestration pipeline. It is
// created per request, never mutated, and discarded once the pipeline
// completes or fails.
type PlanRequest struct {
	// ImageData is a base64-encoded image, optionally wrapped in a data URI
	// and possibly corrupted with transport whitespace.
	ImageData string `json:"image_data"`

	// Goal is the user's stated goal, 1..500 characters.
	Goal string `json:"user_goal"`
}

// Validate checks the request-level invariants. Image decodability is checked
// separately by the image normalizer.
func (r *PlanRequest) Validate() error {
	// Bounds are characters, not bytes; multibyte goals count per rune.
	goal := strings.TrimSpace(r.Goal)
	if n := utf8.RuneCountInString(goal); n < GoalMinLength || n > GoalMaxLength {
		return ErrInvalidInput("user_goal must be 1..500 characters").
			WithCode(ErrorCodeGoalLength).
			WithParam("user_goal")
	}
	if r.ImageData == "" {
		return ErrInvalidInput("image_data is required").WithParam("image_data")
	}
	return nil
}

// Step is one discrete physical action in the returned plan: a safe target,
// the unsafe alternative to avoid, and explanatory text. A plan is an ordered,
// fixed-length sequence of Steps; Sequence numbers are unique and dense (1..N)
// and order is chronological execution order.
type Step struct {
	Sequence             int    `json:"sequence" jsonschema:"minimum=1"`
	TargetLabel          string `json:"target_label"`
	RequiredValue        string `json:"required_value"`
	CorrectTarget        string `json:"correct_target"`
	UnsafeAlternative    string `json:"unsafe_alternative"`
	RationaleText        string `json:"rationale_text"`
	WarningText          string `json:"warning_text"`
	DiagramURL           string `json:"diagram_url"`
	RequiresVerification bool   `json:"requires_verification"`
	VerificationCriteria string `json:"verification_criteria"`
}

// SafetyLevel classifies a task-plan step.
type SafetyLevel string

const (
	SafetySafe    SafetyLevel = "safe"
	SafetyCaution SafetyLevel = "caution"
	SafetyWarning SafetyLevel = "warning"
)

// SafetyLevels enumerates the valid safety classifications.
var SafetyLevels = []SafetyLevel{SafetySafe, SafetyCaution, SafetyWarning}

// PlanStep is one step of the legacy task-plan target.
type PlanStep struct {
	StepNumber           int         `json:"step_number" jsonschema:"minimum=1"`
	Action               string      `json:"action"`
	Component            string      `json:"component"`
	SafetyLevel          SafetyLevel `json:"safety_level" jsonschema:"enum=safe,enum=caution,enum=warning"`
	EstimatedTimeSeconds int         `json:"estimated_time_seconds" jsonschema:"minimum=1"`
}

// ErrorState describes a common error condition and its recovery procedure.
type ErrorState struct {
	ErrorName     string   `json:"error_name"`
	Symptoms      []string `json:"symptoms" jsonschema:"minItems=1"`
	RecoverySteps []string `json:"recovery_steps" jsonschema:"minItems=1"`
}

// TaskPlan is the legacy structured task-plan target: an identified component,
// chronologically ordered steps, and common error states.
type TaskPlan struct {
	IdentifiedComponent       string       `json:"identified_component"`
	ComponentState            string       `json:"component_state"`
	Goal                      string       `json:"goal"`
	PlanSteps                 []PlanStep   `json:"plan_steps" jsonschema:"minItems=1"`
	CommonErrors              []ErrorState `json:"common_errors" jsonschema:"minItems=1,maxItems=3"`
	TotalEstimatedTimeSeconds int          `json:"total_estimated_time_seconds" jsonschema:"minimum=1"`
}

// SearchResult is the payload of one auxiliary web search: the best match for
// a technical documentation query. Err is populated instead of failing the
// pipeline when the search capability is unavailable or returns nothing.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet"`
	Err     string `json:"error,omitempty"`
}

// ValidURL reports whether s parses as an absolute http(s) URL.
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
