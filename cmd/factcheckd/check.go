package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/elitetrace/factcheckd/internal/capture"
	"github.com/elitetrace/factcheckd/internal/observability"
	"github.com/elitetrace/factcheckd/internal/scan"
	"github.com/elitetrace/factcheckd/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Fact-check a piece of text",
	Long: `Runs the full text scan: gathers search evidence for each assertion (when a
search API key is configured), asks the model for a verdict, records the scan
in history, and prints the result.

The text can be given as an argument ("-" reads stdin), read from a file
with --file, or captured from a web page with --url.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

var (
	checkFile       string
	checkURL        string
	checkUseBrowser bool
)

func init() {
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "Path to a text file to scan")
	checkCmd.Flags().StringVarP(&checkURL, "url", "u", "", "URL of a page to capture and scan")
	checkCmd.Flags().BoolVar(&checkUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	text, meta, err := resolveInput(ctx, args, cfg.UseBrowser || checkUseBrowser, cfg.Verbose)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	orch, _, err := buildOrchestrator(ctx, cfg, st)
	if err != nil {
		return err
	}

	result, err := orch.CheckText(ctx, text, meta)
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintVerdict(result)
	return nil
}

// resolveInput picks the scan text from the argument, --file, or --url, in
// that order. Exactly one source must be given.
func resolveInput(ctx context.Context, args []string, useBrowser, verbose bool) (string, *scan.Metadata, error) {
	sources := 0
	if len(args) > 0 {
		sources++
	}
	if checkFile != "" {
		sources++
	}
	if checkURL != "" {
		sources++
	}
	if sources != 1 {
		return "", nil, fmt.Errorf("provide exactly one of: text argument, --file, or --url")
	}

	switch {
	case len(args) > 0:
		if args[0] == "-" {
			content, err := io.ReadAll(os.Stdin)
			if err != nil {
				return "", nil, fmt.Errorf("failed to read stdin: %w", err)
			}
			return strings.TrimSpace(string(content)), nil, nil
		}
		return args[0], nil, nil
	case checkFile != "":
		content, err := os.ReadFile(checkFile)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read input file: %w", err)
		}
		return strings.TrimSpace(string(content)), nil, nil
	default:
		opts := capture.DefaultOptions()
		opts.UseBrowser = useBrowser
		page, err := capture.FromURL(ctx, checkURL, opts)
		if err != nil {
			return "", nil, err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Captured %d characters from %s\n", len(page.Text), checkURL)
		}
		return page.Text, &page.Metadata, nil
	}
}
