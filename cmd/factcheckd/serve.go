package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elitetrace/factcheckd/internal/server"
	"github.com/elitetrace/factcheckd/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fact-check HTTP server",
	Long: `Serves the scan pipeline over HTTP. Clients drive scans with POST
requests, follow live progress on the /events SSE stream, and resynchronize
from GET /state and GET /history when they reconnect.`,
	RunE: runServe,
}

var servePort int

const defaultPort = 8080

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP listen port (default 8080)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	port := servePort
	if port == 0 {
		port = cfg.Port
	}
	if port == 0 {
		port = defaultPort
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	orch, b, err := buildOrchestrator(context.Background(), cfg, st)
	if err != nil {
		return err
	}

	return server.New(server.Config{Port: port}, orch, st, b).Start()
}
