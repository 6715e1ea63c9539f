package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/elitetrace/factcheckd/internal/observability"
	"github.com/elitetrace/factcheckd/internal/store"
)

var visionCmd = &cobra.Command{
	Use:   "vision <image.png>",
	Short: "Fact-check a screenshot",
	Long:  "Runs the vision scan on a PNG screenshot: the model reads the visible claims from the image and returns a verdict, which is recorded in history.",
	Args:  cobra.ExactArgs(1),
	RunE:  runVision,
}

func init() {
	rootCmd.AddCommand(visionCmd)
}

func runVision(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image file: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	orch, _, err := buildOrchestrator(ctx, cfg, st)
	if err != nil {
		return err
	}

	result, err := orch.CheckVision(ctx, image)
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintVerdict(result)
	return nil
}
