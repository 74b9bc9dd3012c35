// Package extract parses the model's final textual output and validates it
// against the target structure, producing either a fully-typed value or a
// classified validation error. The system never partially accepts a
// malformed entity.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/tasklens/tasklens/internal/domain"
)

// snippetLen bounds the excerpt of offending model output carried in
// diagnostics.
const snippetLen = 160

// Snippet returns a bounded excerpt of raw model output for error messages
// and logs. The cut lands on a rune boundary so the excerpt stays valid UTF-8.
func Snippet(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= snippetLen {
		return raw
	}
	cut := snippetLen
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut] + "..."
}

// Steps parses and validates a fixed-length step list. wantCount pins the
// expected number of steps; zero disables the count check. The list may
// arrive wrapped in a keyed "steps" object (the strict-schema shape) or as a
// bare top-level array (the legacy shape).
func Steps(raw string, wantCount int) ([]domain.Step, error) {
	if !gjson.Valid(raw) {
		return nil, domain.ErrMalformedOutput(
			fmt.Sprintf("model output is not valid JSON: %s", Snippet(raw)))
	}

	root := gjson.Parse(raw)
	list := root
	if root.IsObject() {
		list = root.Get("steps")
		if !list.Exists() {
			return nil, domain.ErrSchemaValidation("steps", "required field is missing").
				WithCode(domain.ErrorCodeMissingField)
		}
	}
	if !list.IsArray() {
		return nil, domain.ErrSchemaValidation("steps", "must be an array").
			WithCode(domain.ErrorCodeWrongType)
	}

	items := list.Array()
	if wantCount > 0 && len(items) != wantCount {
		return nil, domain.ErrSchemaValidation("steps",
			fmt.Sprintf("must contain exactly %d steps, got %d", wantCount, len(items))).
			WithCode(domain.ErrorCodeWrongStepCount)
	}

	steps := make([]domain.Step, 0, len(items))
	for i, item := range items {
		step, err := validateStep(i, item)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func validateStep(index int, item gjson.Result) (domain.Step, error) {
	var zero domain.Step
	if !item.IsObject() {
		return zero, domain.ErrSchemaValidation(stepField(index, ""), "step must be an object").
			WithCode(domain.ErrorCodeWrongType)
	}

	seq, err := requireInt(index, item, "sequence", 1)
	if err != nil {
		return zero, err
	}
	// Sequence numbers are dense 1..N with order preserved.
	if seq != index+1 {
		return zero, domain.ErrSchemaValidation(stepField(index, "sequence"),
			fmt.Sprintf("sequence numbers must be dense 1..N, expected %d got %d", index+1, seq)).
			WithCode(domain.ErrorCodeBadSequence)
	}

	step := domain.Step{Sequence: seq}

	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"target_label", &step.TargetLabel},
		{"required_value", &step.RequiredValue},
		{"correct_target", &step.CorrectTarget},
		{"unsafe_alternative", &step.UnsafeAlternative},
		{"rationale_text", &step.RationaleText},
		{"warning_text", &step.WarningText},
	} {
		v, err := requireString(index, item, f.name)
		if err != nil {
			return zero, err
		}
		*f.dst = v
	}

	diagram := item.Get("diagram_url")
	if !diagram.Exists() {
		return zero, missingField(index, "diagram_url")
	}
	if diagram.Type != gjson.String {
		return zero, wrongType(index, "diagram_url", "string")
	}
	if diagram.Str != "" && !domain.ValidURL(diagram.Str) {
		return zero, domain.ErrSchemaValidation(stepField(index, "diagram_url"),
			fmt.Sprintf("must be a well-formed URL when non-empty, got %q", diagram.Str)).
			WithCode(domain.ErrorCodeBadURL)
	}
	step.DiagramURL = diagram.Str

	verify := item.Get("requires_verification")
	if !verify.Exists() {
		return zero, missingField(index, "requires_verification")
	}
	if !verify.IsBool() {
		return zero, wrongType(index, "requires_verification", "boolean")
	}
	step.RequiresVerification = verify.Bool()

	criteria, err := requireString(index, item, "verification_criteria")
	if err != nil {
		return zero, err
	}
	step.VerificationCriteria = criteria

	return step, nil
}

// TaskPlan parses and validates the legacy task-plan target.
func TaskPlan(raw string) (*domain.TaskPlan, error) {
	if !gjson.Valid(raw) {
		return nil, domain.ErrMalformedOutput(
			fmt.Sprintf("model output is not valid JSON: %s", Snippet(raw)))
	}

	var plan domain.TaskPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, domain.ErrMalformedOutput(
			fmt.Sprintf("model output does not decode as a task plan: %v (%s)", err, Snippet(raw)))
	}

	for _, f := range []struct {
		name  string
		value string
	}{
		{"identified_component", plan.IdentifiedComponent},
		{"component_state", plan.ComponentState},
		{"goal", plan.Goal},
	} {
		if f.value == "" {
			return nil, domain.ErrSchemaValidation(f.name, "required field is missing or empty").
				WithCode(domain.ErrorCodeMissingField)
		}
	}

	if len(plan.PlanSteps) == 0 {
		return nil, domain.ErrSchemaValidation("plan_steps", "must contain at least one step").
			WithCode(domain.ErrorCodeMissingField)
	}
	for i, step := range plan.PlanSteps {
		field := func(name string) string { return fmt.Sprintf("plan_steps[%d].%s", i, name) }
		if step.StepNumber != i+1 {
			return nil, domain.ErrSchemaValidation(field("step_number"),
				fmt.Sprintf("step numbers must be dense 1..N, expected %d got %d", i+1, step.StepNumber)).
				WithCode(domain.ErrorCodeBadSequence)
		}
		if step.Action == "" {
			return nil, domain.ErrSchemaValidation(field("action"), "required field is missing or empty").
				WithCode(domain.ErrorCodeMissingField)
		}
		if step.Component == "" {
			return nil, domain.ErrSchemaValidation(field("component"), "required field is missing or empty").
				WithCode(domain.ErrorCodeMissingField)
		}
		if !validSafetyLevel(step.SafetyLevel) {
			return nil, domain.ErrSchemaValidation(field("safety_level"),
				fmt.Sprintf("must be one of safe, caution, warning; got %q", step.SafetyLevel)).
				WithCode(domain.ErrorCodeBadEnumValue)
		}
		if step.EstimatedTimeSeconds < 1 {
			return nil, domain.ErrSchemaValidation(field("estimated_time_seconds"), "must be a positive integer").
				WithCode(domain.ErrorCodeOutOfRange)
		}
	}

	if len(plan.CommonErrors) < 1 || len(plan.CommonErrors) > 3 {
		return nil, domain.ErrSchemaValidation("common_errors",
			fmt.Sprintf("must contain 1..3 entries, got %d", len(plan.CommonErrors))).
			WithCode(domain.ErrorCodeOutOfRange)
	}
	for i, e := range plan.CommonErrors {
		field := func(name string) string { return fmt.Sprintf("common_errors[%d].%s", i, name) }
		if e.ErrorName == "" {
			return nil, domain.ErrSchemaValidation(field("error_name"), "required field is missing or empty").
				WithCode(domain.ErrorCodeMissingField)
		}
		if len(e.Symptoms) == 0 {
			return nil, domain.ErrSchemaValidation(field("symptoms"), "must contain at least one entry").
				WithCode(domain.ErrorCodeOutOfRange)
		}
		if len(e.RecoverySteps) == 0 {
			return nil, domain.ErrSchemaValidation(field("recovery_steps"), "must contain at least one entry").
				WithCode(domain.ErrorCodeOutOfRange)
		}
	}

	if plan.TotalEstimatedTimeSeconds < 1 {
		return nil, domain.ErrSchemaValidation("total_estimated_time_seconds", "must be a positive integer").
			WithCode(domain.ErrorCodeOutOfRange)
	}

	return &plan, nil
}

func validSafetyLevel(level domain.SafetyLevel) bool {
	for _, l := range domain.SafetyLevels {
		if level == l {
			return true
		}
	}
	return false
}

func stepField(index int, name string) string {
	if name == "" {
		return fmt.Sprintf("steps[%d]", index)
	}
	return fmt.Sprintf("steps[%d].%s", index, name)
}

func missingField(index int, name string) *domain.PipelineError {
	return domain.ErrSchemaValidation(stepField(index, name), "required field is missing").
		WithCode(domain.ErrorCodeMissingField)
}

func wrongType(index int, name, want string) *domain.PipelineError {
	return domain.ErrSchemaValidation(stepField(index, name), "must be a "+want).
		WithCode(domain.ErrorCodeWrongType)
}

func requireString(index int, item gjson.Result, name string) (string, error) {
	v := item.Get(name)
	if !v.Exists() {
		return "", missingField(index, name)
	}
	if v.Type != gjson.String {
		return "", wrongType(index, name, "string")
	}
	if v.Str == "" {
		return "", domain.ErrSchemaValidation(stepField(index, name), "must not be empty").
			WithCode(domain.ErrorCodeMissingField)
	}
	return v.Str, nil
}

func requireInt(index int, item gjson.Result, name string, min int64) (int, error) {
	v := item.Get(name)
	if !v.Exists() {
		return 0, missingField(index, name)
	}
	if v.Type != gjson.Number {
		return 0, wrongType(index, name, "number")
	}
	n := v.Int()
	if float64(n) != v.Num {
		return 0, wrongType(index, name, "integer")
	}
	if n < min {
		return 0, domain.ErrSchemaValidation(stepField(index, name),
			fmt.Sprintf("must be >= %d", min)).
			WithCode(domain.ErrorCodeOutOfRange)
	}
	return int(n), nil
}
