package openai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tasklens/tasklens/internal/domain"
	"github.com/tasklens/tasklens/internal/metrics"
)

const (
	// DefaultMaxRetries is the total number of attempts per invocation.
	DefaultMaxRetries = 3

	// DefaultBaseDelay is the delay before the first retry; subsequent
	// retries double it.
	DefaultBaseDelay = time.Second
)

// InvokerOption configures the invoker.
type InvokerOption func(*Invoker)

// WithMaxRetries sets the total attempt budget.
func WithMaxRetries(n int) InvokerOption {
	return func(i *Invoker) {
		i.maxRetries = n
	}
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) InvokerOption {
	return func(i *Invoker) {
		i.baseDelay = d
	}
}

// WithMetrics attaches pipeline metrics to the invoker.
func WithMetrics(m *metrics.Metrics) InvokerOption {
	return func(i *Invoker) {
		i.metrics = m
	}
}

// Invoker executes outbound model calls with bounded exponential-backoff
// retry. It is the single chokepoint for every remote call: client errors
// (4xx) surface immediately, server errors and timeouts are retried up to the
// attempt budget, and the final failure is surfaced, never swallowed.
type Invoker struct {
	client     *Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	maxRetries int
	baseDelay  time.Duration
}

// NewInvoker creates an invoker around the given client.
func NewInvoker(client *Client, logger *slog.Logger, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		client:     client,
		logger:     logger,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.metrics == nil {
		i.metrics = metrics.NewUnregistered()
	}
	return i
}

// Invoke performs one logical chat completion, retrying transient failures
// with exponential backoff (baseDelay * 2^attempt, no jitter). operation names
// the call for logs and metrics.
func (i *Invoker) Invoke(ctx context.Context, req *ChatCompletionRequest, operation string) (*ChatCompletionResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = i.baseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2

	attempt := 0
	resp, err := backoff.Retry(ctx, func() (*ChatCompletionResponse, error) {
		attempt++
		i.logger.Info("invoking model endpoint",
			slog.String("operation", operation),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", i.maxRetries),
		)

		resp, err := i.client.CreateChatCompletion(ctx, req)
		if err != nil {
			var perr *domain.PipelineError
			if errors.As(err, &perr) && !perr.Retryable() {
				i.metrics.UpstreamAttempts.WithLabelValues(operation, "fatal").Inc()
				i.logger.Error("upstream rejected request",
					slog.String("operation", operation),
					slog.Int("status", perr.UpstreamStatus),
					slog.String("error", perr.Message),
				)
				return nil, backoff.Permanent(err)
			}

			i.metrics.UpstreamAttempts.WithLabelValues(operation, "retryable").Inc()
			if attempt < i.maxRetries {
				i.metrics.UpstreamRetries.WithLabelValues(operation).Inc()
				i.logger.Warn("transient upstream failure, will retry",
					slog.String("operation", operation),
					slog.Int("attempt", attempt),
					slog.String("error", err.Error()),
				)
			} else {
				i.logger.Error("all retries exhausted",
					slog.String("operation", operation),
					slog.String("error", err.Error()),
				)
			}
			return nil, err
		}

		i.metrics.UpstreamAttempts.WithLabelValues(operation, "success").Inc()
		return resp, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(i.maxRetries)))

	if err != nil {
		return nil, err
	}
	return resp, nil
}
