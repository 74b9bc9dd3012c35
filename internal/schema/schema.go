// Package schema builds the strict JSON Schemas sent to the model as
// response_format directives. Schemas are reflected from the domain structs
// so the outbound contract and the inbound validator cannot drift apart.
package schema

import (
	"github.com/invopop/jsonschema"

	"github.com/tasklens/tasklens/internal/domain"
	"github.com/tasklens/tasklens/internal/openai"
)

// Schema names referenced by response_format directives.
const (
	StepListName = "step_list"
	TaskPlanName = "task_plan"
)

func reflector() *jsonschema.Reflector {
	// Inline definitions: the remote endpoint wants one self-contained schema.
	return &jsonschema.Reflector{DoNotReference: true}
}

// StepList returns the schema for a fixed-length plan. The step list is
// wrapped in a keyed object because the remote API rejects top-level arrays;
// minItems == maxItems pins the configured step count.
func StepList(stepCount int) *jsonschema.Schema {
	stepSchema := reflector().Reflect(&domain.Step{})
	stepSchema.Version = ""

	n := uint64(stepCount)
	props := jsonschema.NewProperties()
	props.Set("steps", &jsonschema.Schema{
		Type:     "array",
		Items:    stepSchema,
		MinItems: &n,
		MaxItems: &n,
	})

	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             []string{"steps"},
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// TaskPlan returns the schema for the legacy task-plan target.
func TaskPlan() *jsonschema.Schema {
	s := reflector().Reflect(&domain.TaskPlan{})
	s.Version = ""
	return s
}

// StepListFormat wraps the step list schema as a strict response_format.
func StepListFormat(stepCount int) *openai.ResponseFormat {
	return &openai.ResponseFormat{
		Type: "json_schema",
		JSONSchema: &openai.JSONSchemaFormat{
			Name:   StepListName,
			Schema: StepList(stepCount),
			Strict: true,
		},
	}
}

// TaskPlanFormat wraps the task plan schema as a strict response_format.
func TaskPlanFormat() *openai.ResponseFormat {
	return &openai.ResponseFormat{
		Type: "json_schema",
		JSONSchema: &openai.JSONSchemaFormat{
			Name:   TaskPlanName,
			Schema: TaskPlan(),
			Strict: true,
		},
	}
}
