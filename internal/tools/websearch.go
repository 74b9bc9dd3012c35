package tools

import (
	"context"
	"encoding/json"
)

// WebSearchName is the function name the model uses to request a search.
const WebSearchName = "web_search"

// webSearchArgs is the argument schema the model fills in.
type webSearchArgs struct {
	Query string `json:"query"`
}

// WebSearch builds the web_search tool definition over the given search
// function. The function returns the JSON payload handed back to the model.
func WebSearch(searchFn func(ctx context.Context, query string) any) Definition {
	return Definition{
		Name: WebSearchName,
		Description: "Search the web for technical diagrams, pinout guides, or component " +
			"documentation. Use this when the plan mentions specific pins, connectors, or " +
			"technical terms that need visual reference.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type": "string",
					"description": "Search query for technical documentation " +
						"(e.g., 'Raspberry Pi 4 GPIO pinout diagram', 'Arduino Uno pin layout')",
				},
			},
			"required":             []string{"query"},
			"additionalProperties": false,
		},
		Handle: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			var args webSearchArgs
			if err := json.Unmarshal(arguments, &args); err != nil {
				payload, _ := json.Marshal(map[string]string{
					"error": "malformed web_search arguments: " + err.Error(),
				})
				return string(payload), nil
			}
			result := searchFn(ctx, args.Query)
			payload, err := json.Marshal(result)
			if err != nil {
				return "", err
			}
			return string(payload), nil
		},
	}
}
