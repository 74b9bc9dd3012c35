package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tasklens/tasklens/internal/config"
	"github.com/tasklens/tasklens/internal/domain"
	"github.com/tasklens/tasklens/internal/metrics"
)

func newPlanCmd() *cobra.Command {
	var (
		imagePath string
		goal      string
		legacy    bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate a plan for an image and goal, printing JSON to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			req := domain.PlanRequest{
				ImageData: base64.StdEncoding.EncodeToString(raw),
				Goal:      goal,
			}

			coordinator := buildCoordinator(cfg, logger, metrics.NewUnregistered())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if legacy {
				plan, err := coordinator.GenerateTaskPlan(cmd.Context(), req)
				if err != nil {
					return err
				}
				return enc.Encode(plan)
			}

			steps, err := coordinator.GeneratePlan(cmd.Context(), req)
			if err != nil {
				return err
			}
			return enc.Encode(map[string]any{"steps": steps})
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "path to the image file")
	cmd.Flags().StringVar(&goal, "goal", "", "the goal to plan for")
	cmd.Flags().BoolVar(&legacy, "task", false, "produce the task-plan output shape")
	cmd.MarkFlagRequired("image")
	cmd.MarkFlagRequired("goal")

	return cmd
}
