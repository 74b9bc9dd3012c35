package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklens/tasklens/internal/config"
	"github.com/tasklens/tasklens/internal/domain"
	"github.com/tasklens/tasklens/internal/openai"
)

// TestGeneratePlan_EndToEnd exercises the full two-stage path through the real
// HTTP client and retrying invoker against a stubbed upstream endpoint.
func TestGeneratePlan_EndToEnd(t *testing.T) {
	var visionCalls, planCalls int

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var content string
		if req.ResponseFormat == nil {
			visionCalls++
			content = stubSubject
		} else {
			planCalls++
			assert.Equal(t, "json_schema", req.ResponseFormat.Type)
			content = stepListJSON(5)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
	defer upstream.Close()

	client := openai.NewClient("test-key", openai.WithBaseURL(upstream.URL))
	invoker := openai.NewInvoker(client, discardLogger())

	c := NewCoordinator(testConfig(config.ModeTwoStage, 5, false), invoker, discardLogger())

	steps, err := c.GeneratePlan(context.Background(), domain.PlanRequest{
		ImageData: validImage(),
		Goal:      "Blink an LED on GPIO 17",
	})
	require.NoError(t, err)

	require.Len(t, steps, 5, "must produce exactly the configured number of steps")
	for i, step := range steps {
		assert.Equal(t, i+1, step.Sequence, "chronological order must be preserved")
		assert.NotEmpty(t, step.TargetLabel)
		assert.NotEmpty(t, step.WarningText)
	}

	assert.Equal(t, 1, visionCalls, "one vision identification call")
	assert.Equal(t, 1, planCalls, "one strict-schema planning call")
}
