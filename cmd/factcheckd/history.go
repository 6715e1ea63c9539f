package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/elitetrace/factcheckd/internal/observability"
	"github.com/elitetrace/factcheckd/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scan history",
	Long:  "Lists recent scans, newest first. The history keeps the most recent scans and drops older ones automatically.",
	RunE:  runHistory,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent scan history",
	RunE:  runHistory,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all scan history",
	RunE:  runHistoryClear,
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	entries, err := st.History()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	observability.NewPrinter(os.Stdout).PrintHistory(entries)
	return nil
}

func runHistoryClear(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if err := st.ClearHistory(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Println("Scan history cleared.")
	return nil
}
