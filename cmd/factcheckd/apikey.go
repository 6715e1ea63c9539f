package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elitetrace/factcheckd/internal/store"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the stored Gemini API key",
	Long:  "Saves the Gemini API key in the scan database so that scans work without GEMINI_API_KEY in the environment.",
}

var apikeySetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Save the Gemini API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeySet,
}

var apikeyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show whether an API key is stored",
	RunE:  runAPIKeyShow,
}

func init() {
	apikeyCmd.AddCommand(apikeySetCmd)
	apikeyCmd.AddCommand(apikeyShowCmd)
	rootCmd.AddCommand(apikeyCmd)
}

func runAPIKeySet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if err := st.SetAPIKey(args[0]); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}

	fmt.Println("API key saved.")
	return nil
}

func runAPIKeyShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	key, err := st.APIKey()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}

	fmt.Println(maskKey(key))
	return nil
}

// maskKey keeps just enough of the key to recognize it.
func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
