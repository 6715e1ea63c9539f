package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/elitetrace/factcheckd/internal/observability"
	"github.com/elitetrace/factcheckd/internal/store"
)

var siteCmd = &cobra.Command{
	Use:   "site <domain>",
	Short: "Assess the reputation of a website",
	Long:  "Asks the model for a reputation assessment of a domain: High, Medium, or Low, with a reliability score and a short reason.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSite,
}

func init() {
	rootCmd.AddCommand(siteCmd)
}

func runSite(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
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

	status, err := orch.AnalyzeSite(ctx, args[0])
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintSiteStatus(status)
	return nil
}
