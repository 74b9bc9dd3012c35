// Package toolloop drives the bounded multi-turn tool-call protocol: the
// model may request auxiliary tool invocations across several round-trips
// before the conversation is switched into a final strict-schema turn.
package toolloop

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tasklens/tasklens/internal/domain"
	"github.com/tasklens/tasklens/internal/metrics"
	"github.com/tasklens/tasklens/internal/openai"
	"github.com/tasklens/tasklens/internal/prompts"
	"github.com/tasklens/tasklens/internal/tools"
)

// DefaultMaxIterations bounds the Active-state round-trips, preventing an
// unbounded cost/latency loop when the model never stops requesting tools.
const DefaultMaxIterations = 10

// Invoker executes one outbound model call. Satisfied by *openai.Invoker.
type Invoker interface {
	Invoke(ctx context.Context, req *openai.ChatCompletionRequest, operation string) (*openai.ChatCompletionResponse, error)
}

// Option configures the driver.
type Option func(*Driver)

// WithMaxIterations sets the Active-state round-trip bound.
func WithMaxIterations(n int) Option {
	return func(d *Driver) {
		d.maxIterations = n
	}
}

// WithMetrics attaches pipeline metrics to the driver.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// Request describes one tool loop run: the model and sampling parameters used
// for every turn, and the strict response format of the final answer.
type Request struct {
	Model        string
	Temperature  *float32
	MaxTokens    int
	Conversation []openai.ChatCompletionMessage
	Format       *openai.ResponseFormat
}

// Driver runs the tool-call loop state machine.
//
// Active: send the conversation plus the tool catalog, append the reply. A
// reply without tool calls transitions to Finalizing; a reply with tool calls
// dispatches each one, appends the tool-result turns, and stays Active.
//
// Finalizing: append an instruction turn requesting a schema-conformant
// restatement, then issue one final invocation constrained to strict-schema
// output. An endpoint that accepts arbitrary tool use cannot simultaneously
// enforce a strict output schema in the same turn, so the loop switches modes
// here.
//
// Exhausted: maxIterations Active round-trips completed without reaching
// Finalizing.
type Driver struct {
	invoker       Invoker
	registry      *tools.Registry
	logger        *slog.Logger
	metrics       *metrics.Metrics
	maxIterations int
}

// NewDriver creates a tool loop driver.
func NewDriver(invoker Invoker, registry *tools.Registry, logger *slog.Logger, opts ...Option) *Driver {
	d := &Driver{
		invoker:       invoker,
		registry:      registry,
		logger:        logger,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.NewUnregistered()
	}
	return d
}

// Run executes the loop and returns the final structured-output text. The
// conversation grows monotonically within this invocation and is discarded
// afterwards.
func (d *Driver) Run(ctx context.Context, req Request) (string, error) {
	conversation := req.Conversation
	catalog := d.registry.Catalog()

	for iteration := 1; iteration <= d.maxIterations; iteration++ {
		d.logger.Info("tool loop iteration",
			slog.Int("iteration", iteration),
			slog.Int("turns", len(conversation)),
		)

		resp, err := d.invoker.Invoke(ctx, &openai.ChatCompletionRequest{
			Model:       req.Model,
			Messages:    conversation,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Tools:       catalog,
			ToolChoice:  "auto",
		}, "tool-loop")
		if err != nil {
			return "", err
		}

		msg := resp.Message()
		if msg == nil {
			return "", domain.ErrMalformedOutput("model returned no choices").
				WithCode(domain.ErrorCodeEmptyResponse)
		}
		conversation = append(conversation, *msg)

		if len(msg.ToolCalls) == 0 {
			d.logger.Info("model finished using tools, requesting structured output",
				slog.Int("iteration", iteration))
			return d.finalize(ctx, conversation, req)
		}

		for _, call := range msg.ToolCalls {
			d.logger.Info("dispatching tool call",
				slog.String("tool", call.Function.Name),
				slog.String("tool_call_id", call.ID),
			)
			d.metrics.ToolDispatches.WithLabelValues(call.Function.Name).Inc()

			payload, err := d.registry.Dispatch(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			if err != nil {
				return "", err
			}
			conversation = append(conversation, openai.ToolResultMessage(call.ID, payload))
		}
	}

	return "", domain.ErrToolLoopExceeded(d.maxIterations)
}

// finalize issues the single strict-schema call that produces the answer
// handed to the extractor. No tools are offered in this turn.
func (d *Driver) finalize(ctx context.Context, conversation []openai.ChatCompletionMessage, req Request) (string, error) {
	conversation = append(conversation, openai.UserMessage(prompts.FinalizeInstruction))

	resp, err := d.invoker.Invoke(ctx, &openai.ChatCompletionRequest{
		Model:          req.Model,
		Messages:       conversation,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: req.Format,
	}, "tool-loop-finalize")
	if err != nil {
		return "", err
	}

	msg := resp.Message()
	if msg == nil || msg.TextContent() == "" {
		return "", domain.ErrMalformedOutput("empty final response from model").
			WithCode(domain.ErrorCodeEmptyResponse)
	}
	return msg.TextContent(), nil
}
