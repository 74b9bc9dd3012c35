// Package tools provides the static registry of capabilities the model may
// invoke during the tool-call loop. Dispatch is by registered name; an
// unknown name produces a typed "unsupported capability" result rather than a
// lookup failure, so a hallucinated tool name never aborts the loop.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tasklens/tasklens/internal/openai"
)

// Handler executes one capability invocation. arguments is the raw JSON the
// model supplied. The returned payload is injected into the conversation as a
// tool turn; errors the model should see are encoded in the payload, a Go
// error is reserved for programming mistakes.
type Handler func(ctx context.Context, arguments json.RawMessage) (string, error)

// Definition pairs a tool's catalog entry with its handler.
type Definition struct {
	// Name is the function name the model calls.
	Name string

	// Description tells the model when to use the tool.
	Description string

	// Parameters is the JSON Schema of the tool arguments.
	Parameters any

	// Handle executes the tool.
	Handle Handler
}

// Registry maps capability names to typed handlers. It is populated once at
// construction and read-only afterwards.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry creates a registry from the given definitions. Duplicate or
// unnamed definitions are a programming error.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("tool definition missing name")
		}
		if d.Handle == nil {
			return nil, fmt.Errorf("tool %q missing handler", d.Name)
		}
		if _, exists := r.defs[d.Name]; exists {
			return nil, fmt.Errorf("tool %q already registered", d.Name)
		}
		r.defs[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// Catalog renders the registered tools in the wire format sent with each
// tool-enabled model call.
func (r *Registry) Catalog() []openai.Tool {
	catalog := make([]openai.Tool, 0, len(r.order))
	for _, name := range r.order {
		d := r.defs[name]
		catalog = append(catalog, openai.Tool{
			Type: "function",
			Function: openai.FunctionTool{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return catalog
}

// Dispatch executes the named capability. Unknown names yield a synthetic
// error payload for the model; the loop itself keeps running.
func (r *Registry) Dispatch(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	d, ok := r.defs[name]
	if !ok {
		payload, _ := json.Marshal(map[string]string{
			"error": fmt.Sprintf("unsupported capability: %s", name),
		})
		return string(payload), nil
	}
	return d.Handle(ctx, arguments)
}
