// Command tasklens runs the plan orchestration service and a one-shot CLI for
// generating plans from the command line.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tasklens/tasklens/internal/config"
	"github.com/tasklens/tasklens/internal/metrics"
	"github.com/tasklens/tasklens/internal/openai"
	"github.com/tasklens/tasklens/internal/pipeline"
	"github.com/tasklens/tasklens/internal/search"
	"github.com/tasklens/tasklens/internal/toolloop"
	"github.com/tasklens/tasklens/internal/tools"
)

var configPath string

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "tasklens",
		Short:        "Image-grounded task plan generation",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to optional YAML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newPlanCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// buildCoordinator wires the full pipeline: HTTP client, retrying invoker,
// search-backed tool registry, tool loop driver, and the coordinator.
func buildCoordinator(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *pipeline.Coordinator {
	client := openai.NewClient(cfg.OpenAI.APIKey,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithTimeout(time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second),
	)
	invoker := openai.NewInvoker(client, logger,
		openai.WithMaxRetries(cfg.OpenAI.MaxRetries),
		openai.WithMetrics(m),
	)

	searcher := search.NewClient(cfg.Serper.APIKey, logger,
		search.WithBaseURL(cfg.Serper.BaseURL),
	)
	registry, err := tools.NewRegistry(
		tools.WebSearch(func(ctx context.Context, query string) any {
			return searcher.Search(ctx, query)
		}),
	)
	if err != nil {
		// The static catalog is wired at compile time; a registration error
		// is a programming bug.
		panic(err)
	}

	driver := toolloop.NewDriver(invoker, registry, logger,
		toolloop.WithMaxIterations(cfg.Plan.MaxToolIterations),
		toolloop.WithMetrics(m),
	)

	return pipeline.NewCoordinator(cfg, invoker, logger,
		pipeline.WithToolDriver(driver),
		pipeline.WithMetrics(m),
	)
}
