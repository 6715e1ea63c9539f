package scan

import (
	"encoding/json"

	"github.com/elitetrace/factcheckd/internal/prompts"
	"github.com/elitetrace/factcheckd/internal/verdict"
)

// buildTextPrompt embeds the original text and the gathered evidence into
// the strict-JSON analysis instruction.
func buildTextPrompt(text string, results map[string][]verdict.EvidenceItem) string {
	evidenceJSON, err := json.Marshal(results)
	if err != nil {
		// Evidence items are plain strings; this cannot happen in practice.
		evidenceJSON = []byte("{}")
	}

	template := prompts.MustGet("scan.json", "analyze-text")
	return prompts.Format(template, map[string]string{
		"Text":     text,
		"Evidence": string(evidenceJSON),
	})
}

func buildVisionPrompt() string {
	return prompts.MustGet("scan.json", "analyze-vision")
}

func buildSitePrompt(domain string) string {
	template := prompts.MustGet("scan.json", "analyze-site")
	return prompts.Format(template, map[string]string{
		"Domain": domain,
	})
}

// parseSiteStatus decodes the model's site-reputation JSON. Unlike verdict
// parsing, a site check has no graceful default: an undecodable response
// reports failure to the caller instead of a synthetic status.
func parseSiteStatus(raw string) (*verdict.SiteStatus, bool) {
	clean := verdict.StripFences(raw)

	var status verdict.SiteStatus
	if err := json.Unmarshal([]byte(clean), &status); err != nil {
		return nil, false
	}
	if status.Reputation == "" && status.Reason == "" {
		return nil, false
	}
	return &status, true
}
