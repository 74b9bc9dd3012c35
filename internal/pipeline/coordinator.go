// Package pipeline coordinates the end-to-end plan generation flow: request
// validation, image normalization, the vision and planning model calls, the
// optional tool-call loop, and final extraction into validated domain values.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tasklens/tasklens/internal/codec"
	"github.com/tasklens/tasklens/internal/config"
	"github.com/tasklens/tasklens/internal/domain"
	"github.com/tasklens/tasklens/internal/extract"
	"github.com/tasklens/tasklens/internal/metrics"
	"github.com/tasklens/tasklens/internal/openai"
	"github.com/tasklens/tasklens/internal/prompts"
	"github.com/tasklens/tasklens/internal/schema"
	"github.com/tasklens/tasklens/internal/tokens"
	"github.com/tasklens/tasklens/internal/toolloop"
)

// Sampling and budget defaults for the two call kinds. The vision call is a
// one-sentence identification; the planning call carries the full step list.
const (
	visionMaxTokens = 300
	planMaxTokens   = 4096
)

var planTemperature = float32(0.2)

// Invoker executes one outbound model call. Satisfied by *openai.Invoker.
type Invoker interface {
	Invoke(ctx context.Context, req *openai.ChatCompletionRequest, operation string) (*openai.ChatCompletionResponse, error)
}

// ToolDriver runs the bounded tool-call loop. Satisfied by *toolloop.Driver.
type ToolDriver interface {
	Run(ctx context.Context, req toolloop.Request) (string, error)
}

// Option configures the coordinator.
type Option func(*Coordinator)

// WithMetrics attaches pipeline metrics to the coordinator.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithToolDriver sets the tool loop driver used in combined mode when tool use
// is enabled.
func WithToolDriver(d ToolDriver) Option {
	return func(c *Coordinator) {
		c.driver = d
	}
}

// Coordinator owns the plan generation pipeline. It holds no per-request
// state; the per-request conversation lives on the stack of each call and is
// discarded when the call returns.
type Coordinator struct {
	cfg       *config.Config
	invoker   Invoker
	driver    ToolDriver
	estimator *tokens.Estimator
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewCoordinator creates the pipeline coordinator.
func NewCoordinator(cfg *config.Config, invoker Invoker, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:       cfg,
		invoker:   invoker,
		estimator: tokens.NewEstimator(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewUnregistered()
	}
	return c
}

// GeneratePlan runs the full pipeline for one request and returns the ordered,
// validated step list. Each request is independent; the coordinator is safe
// for concurrent use.
func (c *Coordinator) GeneratePlan(ctx context.Context, req domain.PlanRequest) ([]domain.Step, error) {
	steps, err := c.generatePlan(ctx, req)
	c.recordOutcome(c.cfg.Plan.Mode, err)
	return steps, err
}

func (c *Coordinator) generatePlan(ctx context.Context, req domain.PlanRequest) ([]domain.Step, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	img, err := codec.Normalize(req.ImageData)
	if err != nil {
		return nil, err
	}

	switch c.cfg.Plan.Mode {
	case config.ModeTwoStage:
		return c.twoStagePlan(ctx, req.Goal, img)
	default:
		return c.combinedPlan(ctx, req.Goal, img)
	}
}

// twoStagePlan runs a vision identification call followed by a text-only
// strict-schema planning call. No tool use.
func (c *Coordinator) twoStagePlan(ctx context.Context, goal string, img codec.NormalizedImage) ([]domain.Step, error) {
	subject, err := c.identify(ctx, goal, img)
	if err != nil {
		return nil, err
	}

	n := c.cfg.Plan.StepCount
	conversation := []openai.ChatCompletionMessage{
		openai.SystemMessage(prompts.PlanSystem(subject, n)),
		openai.UserMessage(prompts.PlanUser(subject, goal, n)),
	}
	c.logPromptTokens("plan", c.cfg.OpenAI.TextModel, conversation)

	resp, err := c.invoker.Invoke(ctx, &openai.ChatCompletionRequest{
		Model:          c.cfg.OpenAI.TextModel,
		Messages:       conversation,
		Temperature:    &planTemperature,
		MaxTokens:      planMaxTokens,
		ResponseFormat: schema.StepListFormat(n),
	}, "plan")
	if err != nil {
		return nil, err
	}

	msg := resp.Message()
	if msg == nil || msg.TextContent() == "" {
		return nil, domain.ErrMalformedOutput("empty planning response from model").
			WithCode(domain.ErrorCodeEmptyResponse)
	}
	return extract.Steps(msg.TextContent(), n)
}

// combinedPlan runs a single multimodal planning conversation. With tool use
// enabled the conversation goes through the tool-call loop; otherwise it is
// one strict-schema call.
func (c *Coordinator) combinedPlan(ctx context.Context, goal string, img codec.NormalizedImage) ([]domain.Step, error) {
	n := c.cfg.Plan.StepCount
	conversation := []openai.ChatCompletionMessage{
		openai.SystemMessage(prompts.CombinedSystem(n)),
		openai.UserImageMessage(prompts.CombinedUser(goal, n), img.DataURI()),
	}
	c.logPromptTokens("combined-plan", c.cfg.OpenAI.VisionModel, conversation)

	if c.cfg.Plan.ToolUse && c.driver != nil {
		raw, err := c.driver.Run(ctx, toolloop.Request{
			Model:        c.cfg.OpenAI.VisionModel,
			Temperature:  &planTemperature,
			MaxTokens:    planMaxTokens,
			Conversation: conversation,
			Format:       schema.StepListFormat(n),
		})
		if err != nil {
			return nil, err
		}
		return extract.Steps(raw, n)
	}

	resp, err := c.invoker.Invoke(ctx, &openai.ChatCompletionRequest{
		Model:          c.cfg.OpenAI.VisionModel,
		Messages:       conversation,
		Temperature:    &planTemperature,
		MaxTokens:      planMaxTokens,
		ResponseFormat: schema.StepListFormat(n),
	}, "combined-plan")
	if err != nil {
		return nil, err
	}

	msg := resp.Message()
	if msg == nil || msg.TextContent() == "" {
		return nil, domain.ErrMalformedOutput("empty planning response from model").
			WithCode(domain.ErrorCodeEmptyResponse)
	}
	return extract.Steps(msg.TextContent(), n)
}

// GenerateTaskPlan runs the pipeline against the legacy task-plan target:
// vision identification followed by a strict-schema planning call producing a
// TaskPlan with safety levels and time estimates.
func (c *Coordinator) GenerateTaskPlan(ctx context.Context, req domain.PlanRequest) (*domain.TaskPlan, error) {
	plan, err := c.generateTaskPlan(ctx, req)
	c.recordOutcome("task-plan", err)
	return plan, err
}

func (c *Coordinator) generateTaskPlan(ctx context.Context, req domain.PlanRequest) (*domain.TaskPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	img, err := codec.Normalize(req.ImageData)
	if err != nil {
		return nil, err
	}

	subject, err := c.identify(ctx, req.Goal, img)
	if err != nil {
		return nil, err
	}
	component, state := splitSubject(subject)

	conversation := []openai.ChatCompletionMessage{
		openai.SystemMessage(prompts.TaskPlanSystem(component, state)),
		openai.UserMessage(prompts.TaskPlanUser(component, state, req.Goal)),
	}
	c.logPromptTokens("task-plan", c.cfg.OpenAI.TextModel, conversation)

	resp, err := c.invoker.Invoke(ctx, &openai.ChatCompletionRequest{
		Model:          c.cfg.OpenAI.TextModel,
		Messages:       conversation,
		Temperature:    &planTemperature,
		MaxTokens:      planMaxTokens,
		ResponseFormat: schema.TaskPlanFormat(),
	}, "task-plan")
	if err != nil {
		return nil, err
	}

	msg := resp.Message()
	if msg == nil || msg.TextContent() == "" {
		return nil, domain.ErrMalformedOutput("empty planning response from model").
			WithCode(domain.ErrorCodeEmptyResponse)
	}
	return extract.TaskPlan(msg.TextContent())
}

// identify runs the vision call and returns the one-sentence subject
// description.
func (c *Coordinator) identify(ctx context.Context, goal string, img codec.NormalizedImage) (string, error) {
	conversation := []openai.ChatCompletionMessage{
		openai.UserImageMessage(prompts.IdentifyUser(goal), img.DataURI()),
	}
	c.logPromptTokens("identify", c.cfg.OpenAI.VisionModel, conversation)

	resp, err := c.invoker.Invoke(ctx, &openai.ChatCompletionRequest{
		Model:       c.cfg.OpenAI.VisionModel,
		Messages:    conversation,
		Temperature: &planTemperature,
		MaxTokens:   visionMaxTokens,
	}, "identify")
	if err != nil {
		return "", err
	}

	msg := resp.Message()
	if msg == nil || msg.TextContent() == "" {
		return "", domain.ErrMalformedOutput("empty identification response from model").
			WithCode(domain.ErrorCodeEmptyResponse)
	}

	subject := prompts.Sanitize(msg.TextContent())
	c.logger.Info("subject identified", slog.String("subject", subject))
	return subject, nil
}

// splitSubject breaks the "[Component], [State], [Features]" identification
// sentence into component and state parts for the legacy prompt.
func splitSubject(subject string) (component, state string) {
	parts := strings.SplitN(subject, ",", 3)
	component = strings.TrimSpace(parts[0])
	state = "as shown in the image"
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		state = strings.TrimSpace(parts[1])
	}
	return component, state
}

// logPromptTokens estimates and logs the outbound prompt size; over-budget
// prompts are logged at warn level but still sent.
func (c *Coordinator) logPromptTokens(operation, model string, messages []openai.ChatCompletionMessage) {
	count, err := c.estimator.CountMessages(model, messages)
	if err != nil {
		c.logger.Warn("token estimation failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return
	}

	attrs := []any{
		slog.String("operation", operation),
		slog.String("model", model),
		slog.Int("prompt_tokens", count),
	}
	if budget := c.cfg.Plan.PromptTokenBudget; budget > 0 && count > budget {
		c.logger.Warn("prompt exceeds token budget", append(attrs, slog.Int("budget", budget))...)
		return
	}
	c.logger.Info("estimated prompt tokens", attrs...)
}

func (c *Coordinator) recordOutcome(mode string, err error) {
	outcome := "success"
	if err != nil {
		outcome = domain.ErrorTypeOf(err)
	}
	c.metrics.PlanOutcomes.WithLabelValues(mode, outcome).Inc()
}
