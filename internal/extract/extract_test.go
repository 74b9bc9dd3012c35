package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklens/tasklens/internal/domain"
)

func validStepJSON(seq int) string {
	diagram := ""
	if seq == 1 {
		diagram = "https://pinout.xyz"
	}
	return fmt.Sprintf(`{
		"sequence": %d,
		"target_label": "GPIO Pin 17",
		"required_value": "220 ohm resistor",
		"correct_target": "Pin 17",
		"unsafe_alternative": "5V Pin",
		"rationale_text": "This resistor limits current to the LED.",
		"warning_text": "The 5V pin would burn out the LED instantly.",
		"diagram_url": %q,
		"requires_verification": true,
		"verification_criteria": "Wire firmly connected to Pin 17"
	}`, seq, diagram)
}

func validStepList(n int) string {
	out := `{"steps":[`
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ","
		}
		out += validStepJSON(i)
	}
	return out + `]}`
}

func requireValidationError(t *testing.T, err error, wantParam string) *domain.PipelineError {
	t.Helper()
	require.Error(t, err)
	var perr *domain.PipelineError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, domain.ErrorTypeSchemaValidation, perr.Type)
	assert.Equal(t, wantParam, perr.Param, "error must name the offending field")
	return perr
}

func TestSnippet_CutsOnRuneBoundary(t *testing.T) {
	// Long enough to truncate, with a multibyte rune straddling the cut point.
	raw := strings.Repeat("日本語テキスト", 40)
	out := Snippet(raw)

	assert.True(t, strings.HasSuffix(out, "..."))
	assert.True(t, utf8.ValidString(out), "truncated snippet must remain valid UTF-8")
	assert.LessOrEqual(t, len(out), 163)
}

func TestSnippet_ShortInputUnchanged(t *testing.T) {
	assert.Equal(t, "plain text", Snippet("  plain text\n"))
}

func TestSteps_Valid(t *testing.T) {
	steps, err := Steps(validStepList(5), 5)
	require.NoError(t, err)
	require.Len(t, steps, 5)

	for i, step := range steps {
		assert.Equal(t, i+1, step.Sequence)
		assert.Equal(t, "GPIO Pin 17", step.TargetLabel)
		assert.True(t, step.RequiresVerification)
	}
	assert.Equal(t, "https://pinout.xyz", steps[0].DiagramURL)
	assert.Empty(t, steps[1].DiagramURL, "empty diagram_url is valid")
}

func TestSteps_TopLevelArrayAccepted(t *testing.T) {
	steps, err := Steps("["+validStepJSON(1)+"]", 1)
	require.NoError(t, err)
	require.Len(t, steps, 1)
}

func TestSteps_NotJSON(t *testing.T) {
	_, err := Steps("I'm sorry, I can't produce JSON right now", 5)
	var perr *domain.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, domain.ErrorTypeMalformedOutput, perr.Type)
	assert.Contains(t, perr.Message, "I'm sorry", "diagnostic must carry an output snippet")
}

func TestSteps_MissingRequiredField(t *testing.T) {
	raw := `{"steps":[{
		"sequence": 1,
		"required_value": "220 ohm resistor",
		"correct_target": "Pin 17",
		"unsafe_alternative": "5V Pin",
		"rationale_text": "why",
		"warning_text": "ouch",
		"diagram_url": "",
		"requires_verification": false,
		"verification_criteria": "done"
	}]}`

	perr := requireValidationError(t, mustErr(Steps(raw, 1)), "steps[0].target_label")
	assert.Equal(t, domain.ErrorCodeMissingField, perr.Code)
}

func TestSteps_WrongStepCount(t *testing.T) {
	perr := requireValidationError(t, mustErr(Steps(validStepList(4), 6)), "steps")
	assert.Equal(t, domain.ErrorCodeWrongStepCount, perr.Code)
}

func TestSteps_SequenceGap(t *testing.T) {
	raw := `{"steps":[` + validStepJSON(1) + `,` + validStepJSON(3) + `]}`
	perr := requireValidationError(t, mustErr(Steps(raw, 2)), "steps[1].sequence")
	assert.Equal(t, domain.ErrorCodeBadSequence, perr.Code)
}

func TestSteps_BadDiagramURL(t *testing.T) {
	bad := `{"steps":[{
		"sequence": 1,
		"target_label": "GPIO Pin 17",
		"required_value": "220 ohm resistor",
		"correct_target": "Pin 17",
		"unsafe_alternative": "5V Pin",
		"rationale_text": "why",
		"warning_text": "ouch",
		"diagram_url": "not a url",
		"requires_verification": true,
		"verification_criteria": "done"
	}]}`

	perr := requireValidationError(t, mustErr(Steps(bad, 1)), "steps[0].diagram_url")
	assert.Equal(t, domain.ErrorCodeBadURL, perr.Code)
}

func TestSteps_WrongTypes(t *testing.T) {
	raw := `{"steps":[{
		"sequence": "first",
		"target_label": "GPIO Pin 17",
		"required_value": "220 ohm resistor",
		"correct_target": "Pin 17",
		"unsafe_alternative": "5V Pin",
		"rationale_text": "why",
		"warning_text": "ouch",
		"diagram_url": "",
		"requires_verification": true,
		"verification_criteria": "done"
	}]}`

	perr := requireValidationError(t, mustErr(Steps(raw, 1)), "steps[0].sequence")
	assert.Equal(t, domain.ErrorCodeWrongType, perr.Code)
}

func TestSteps_MissingStepsField(t *testing.T) {
	perr := requireValidationError(t, mustErr(Steps(`{"plan":[]}`, 5)), "steps")
	assert.Equal(t, domain.ErrorCodeMissingField, perr.Code)
}

func TestSteps_RoundTrip(t *testing.T) {
	steps, err := Steps(validStepList(6), 6)
	require.NoError(t, err)

	// Serialize the validated value and run it back through the validator.
	encoded, err := json.Marshal(map[string]any{"steps": steps})
	require.NoError(t, err)

	again, err := Steps(string(encoded), 6)
	require.NoError(t, err)
	assert.Equal(t, steps, again, "round-trip must be field-for-field identical")
}

func validTaskPlanJSON() string {
	return `{
		"identified_component": "Raspberry Pi 4",
		"component_state": "Unpowered",
		"goal": "Blink an LED",
		"plan_steps": [
			{"step_number":1,"action":"Connect resistor","component":"220 ohm resistor","safety_level":"safe","estimated_time_seconds":60},
			{"step_number":2,"action":"Attach LED","component":"LED","safety_level":"caution","estimated_time_seconds":30}
		],
		"common_errors": [
			{"error_name":"LED does not light","symptoms":["no light"],"recovery_steps":["check polarity"]}
		],
		"total_estimated_time_seconds": 90
	}`
}

func TestTaskPlan_Valid(t *testing.T) {
	plan, err := TaskPlan(validTaskPlanJSON())
	require.NoError(t, err)
	assert.Equal(t, "Raspberry Pi 4", plan.IdentifiedComponent)
	require.Len(t, plan.PlanSteps, 2)
	assert.Equal(t, domain.SafetyCaution, plan.PlanSteps[1].SafetyLevel)
}

func TestTaskPlan_BadEnum(t *testing.T) {
	raw := validTaskPlanJSON()
	raw = replaceOnce(t, raw, `"safety_level":"caution"`, `"safety_level":"dangerous"`)

	perr := requireValidationError(t, mustErr2(TaskPlan(raw)), "plan_steps[1].safety_level")
	assert.Equal(t, domain.ErrorCodeBadEnumValue, perr.Code)
}

func TestTaskPlan_TimeOutOfRange(t *testing.T) {
	raw := replaceOnce(t, validTaskPlanJSON(), `"estimated_time_seconds":30`, `"estimated_time_seconds":0`)
	perr := requireValidationError(t, mustErr2(TaskPlan(raw)), "plan_steps[1].estimated_time_seconds")
	assert.Equal(t, domain.ErrorCodeOutOfRange, perr.Code)
}

func TestTaskPlan_MissingComponent(t *testing.T) {
	raw := replaceOnce(t, validTaskPlanJSON(), `"identified_component": "Raspberry Pi 4",`, "")
	requireValidationError(t, mustErr2(TaskPlan(raw)), "identified_component")
}

func mustErr(_ []domain.Step, err error) error { return err }

func mustErr2(_ *domain.TaskPlan, err error) error { return err }

func replaceOnce(t *testing.T, s, old, repl string) string {
	t.Helper()
	require.Contains(t, s, old)
	return strings.Replace(s, old, repl, 1)
}
