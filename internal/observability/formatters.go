// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elitetrace/factcheckd/internal/verdict"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI results.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintVerdict outputs a human-readable summary of a scan verdict.
func (p *Printer) PrintVerdict(v *verdict.Verdict) {
	if v == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Score:      %d/100\n", v.Score))
	sb.WriteString(fmt.Sprintf("Label:      %s %s\n", labelMarker(v.Label), v.Label))
	sb.WriteString(fmt.Sprintf("Confidence: %s\n", v.ConfidenceLevel))
	if v.Category != "" {
		sb.WriteString(fmt.Sprintf("Category:   %s\n", v.Category))
	}
	sb.WriteString("\n")

	if v.Explanation != "" {
		sb.WriteString("Explanation:\n")
		for _, line := range wrapText(v.Explanation, boxWidth-6) {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
	}

	if v.SourceEvaluation != "" {
		sb.WriteString("\nSource Evaluation:\n")
		for _, line := range wrapText(v.SourceEvaluation, boxWidth-6) {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
	}

	if v.Recommendation != "" {
		sb.WriteString("\nRecommendation:\n")
		for _, line := range wrapText(v.Recommendation, boxWidth-6) {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
	}

	if len(v.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		count := min(len(v.Sources), maxItemsToShow)
		for i := 0; i < count; i++ {
			src := v.Sources[i]
			sb.WriteString(fmt.Sprintf("  • %s\n", src.Title))
			if src.Link != "" {
				sb.WriteString(fmt.Sprintf("    %s\n", src.Link))
			}
		}
		if len(v.Sources) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(v.Sources)-maxItemsToShow))
		}
	}

	p.printBox("SCAN VERDICT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintHistory outputs recent scan history, newest first.
func (p *Printer) PrintHistory(entries []verdict.HistoryEntry) {
	if len(entries) == 0 {
		p.printBox("SCAN HISTORY", "No scans recorded yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total scans: %d\n\n", len(entries)))

	count := min(len(entries), maxItemsToShow)
	for i := 0; i < count; i++ {
		entry := entries[i]
		when := time.UnixMilli(entry.Timestamp).Format("2006-01-02 15:04")
		title := entry.SourceTitle
		if title == "" {
			title = "(untitled)"
		}
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, title))
		sb.WriteString(fmt.Sprintf("    %s %s  %d/100  %s\n",
			labelMarker(entry.Verdict.Label), entry.Verdict.Label, entry.Verdict.Score, when))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(entries) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more scans", len(entries)-maxItemsToShow))
	}

	p.printBox("SCAN HISTORY", sb.String())
}

// PrintSiteStatus outputs a site reputation assessment.
func (p *Printer) PrintSiteStatus(status *verdict.SiteStatus) {
	if status == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Domain:      %s\n", status.Domain))
	sb.WriteString(fmt.Sprintf("Reputation:  %s\n", status.Reputation))
	sb.WriteString(fmt.Sprintf("Reliability: %d/100\n", status.ReliabilityScore))

	if status.Reason != "" {
		sb.WriteString("\nReason:\n")
		for _, line := range wrapText(status.Reason, boxWidth-6) {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
	}

	p.printBox("SITE REPUTATION", strings.TrimSuffix(sb.String(), "\n"))
}

func labelMarker(label verdict.Label) string {
	switch label {
	case verdict.LabelReliable:
		return "✓"
	case verdict.LabelUncertain:
		return "?"
	case verdict.LabelUnreliable:
		return "✗"
	case verdict.LabelError:
		return "⚠"
	default:
		return "·"
	}
}

// wrapText splits text into lines no longer than width, breaking on spaces.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}
