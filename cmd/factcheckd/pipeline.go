package main

import (
	"context"
	"fmt"

	"github.com/elitetrace/factcheckd/internal/bus"
	"github.com/elitetrace/factcheckd/internal/config"
	"github.com/elitetrace/factcheckd/internal/evidence"
	"github.com/elitetrace/factcheckd/internal/llm"
	"github.com/elitetrace/factcheckd/internal/scan"
	"github.com/elitetrace/factcheckd/internal/store"
)

// loadConfig resolves configuration from file, environment, and flags, in
// increasing order of precedence.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagVerbose {
		cfg.Verbose = true
	}
	if cfg.DBPath == "" {
		path, err := config.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		cfg.DBPath = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// keyedStore overlays an explicitly configured API key over the stored one.
// A key given on the command line, in the config file, or in the environment
// wins; otherwise the key saved with "factcheckd apikey set" is used.
type keyedStore struct {
	*store.Store
	overrideKey string
}

func (k *keyedStore) APIKey() (string, error) {
	if k.overrideKey != "" {
		return k.overrideKey, nil
	}
	return k.Store.APIKey()
}

// buildOrchestrator wires the scan pipeline: Gemini model client, optional
// evidence retriever, persistent store, and notification bus.
func buildOrchestrator(ctx context.Context, cfg *config.Config, st *store.Store) (*scan.Orchestrator, *bus.Bus, error) {
	opts := llm.DefaultOptions()
	if cfg.Model != "" {
		opts.Model = cfg.Model
	}
	model := llm.NewGeminiClient(opts)

	var retriever evidence.Retriever
	if cfg.SearchAPIKey != "" {
		r, err := evidence.NewGoogleRetriever(ctx, cfg.SearchAPIKey, cfg.SearchEngineID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create search client: %w", err)
		}
		retriever = r
	}

	b := bus.New()
	return scan.New(model, retriever, &keyedStore{Store: st, overrideKey: cfg.APIKey}, b), b, nil
}
