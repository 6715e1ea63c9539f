// Package main provides the entry point for the factcheckd CLI and daemon.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "factcheckd",
	Short: "AI fact-check agent",
	Long:  "factcheckd scans text, screenshots, and whole sites for veracity using the Gemini API, keeps a rolling scan history, and can serve the pipeline over HTTP for UI clients.",
}

var (
	flagConfig  string
	flagDB      string
	flagAPIKey  string
	flagVerbose bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config.json file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Path to the scan database (defaults to ~/.factcheckd/factcheck.db)")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var and the stored key)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
