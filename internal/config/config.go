// Package config provides configuration loading and validation for the
// daemon and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Env variable names consulted when a config field is unset.
const (
	EnvAPIKey         = "GEMINI_API_KEY"
	EnvSearchAPIKey   = "SEARCH_API_KEY"
	EnvSearchEngineID = "SEARCH_ENGINE_ID"
	EnvDBPath         = "FACTCHECK_DB"
)

// Config is the daemon configuration, loadable from a JSON file. All fields
// are optional; missing values fall back to environment variables or
// defaults.
type Config struct {
	Port           int    `json:"port,omitempty"`             // HTTP listen port
	DBPath         string `json:"db_path,omitempty"`          // bbolt database location
	APIKey         string `json:"api_key,omitempty"`          // Gemini API key (seeds the store)
	SearchAPIKey   string `json:"search_api_key,omitempty"`   // Custom Search API key
	SearchEngineID string `json:"search_engine_id,omitempty"` // Custom Search engine ID (cx)
	Model          string `json:"model,omitempty"`            // Gemini model name override
	UseBrowser     bool   `json:"use_browser,omitempty"`      // headless browser fallback for capture
	Verbose        bool   `json:"verbose,omitempty"`          // detailed CLI output
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv fills unset fields from the environment. File values win over
// env values; flags are applied by the caller and win over both.
func (c *Config) ApplyEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(EnvAPIKey)
	}
	if c.SearchAPIKey == "" {
		c.SearchAPIKey = os.Getenv(EnvSearchAPIKey)
	}
	if c.SearchEngineID == "" {
		c.SearchEngineID = os.Getenv(EnvSearchEngineID)
	}
	if c.DBPath == "" {
		c.DBPath = os.Getenv(EnvDBPath)
	}
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be in [0, 65535]")
	}
	if c.SearchAPIKey != "" && c.SearchEngineID == "" {
		return fmt.Errorf("config error: 'search_engine_id' is required when 'search_api_key' is set")
	}
	return nil
}

// DefaultDBPath returns the per-user database location used when no path is
// configured.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".factcheckd")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dir, "factcheck.db"), nil
}
