// Package verdict defines the structured reliability assessment produced by
// the analysis pipeline and the tolerant parser that extracts it from raw
// model output.
package verdict

// Label classifies the overall reliability of the analyzed content.
type Label string

// Label values. Unknown is the default when the model omits the field;
// Error marks a verdict synthesized from unparsable model output.
const (
	LabelReliable   Label = "Reliable"
	LabelUncertain  Label = "Uncertain"
	LabelUnreliable Label = "Unreliable"
	LabelUnknown    Label = "Unknown"
	LabelError      Label = "Error"
)

// Confidence is the model's self-reported certainty.
type Confidence string

// Confidence values.
const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
	ConfidenceNA     Confidence = "N/A"
)

// EvidenceItem is a single web search result used to ground the assessment.
// Ordering follows the upstream search ranking; items are not deduplicated.
type EvidenceItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
	Link    string `json:"link"`
}

// Verdict is the central output record of a scan. Every field has a default
// so that construction never fails even when the model output is partially
// missing.
type Verdict struct {
	Score            int            `json:"score"`
	Label            Label          `json:"label"`
	Category         string         `json:"category"`
	Explanation      string         `json:"explanation"`
	SourceEvaluation string         `json:"sourceEvaluation"`
	ConfidenceLevel  Confidence     `json:"confidenceLevel"`
	Recommendation   string         `json:"recommendation"`
	Sources          []EvidenceItem `json:"sources"`
}

// Default returns a Verdict with every field at its documented default.
func Default() Verdict {
	return Verdict{
		Score:           0,
		Label:           LabelUnknown,
		ConfidenceLevel: ConfidenceLow,
		Sources:         []EvidenceItem{},
	}
}

// HistoryEntry is a completed verdict annotated with its provenance. Entries
// are appended newest-first to a bounded history owned by the store.
type HistoryEntry struct {
	ID          string  `json:"id"`
	Verdict     Verdict `json:"verdict"`
	Timestamp   int64   `json:"timestamp"` // epoch milliseconds
	SourceTitle string  `json:"sourceTitle"`
	SourceURL   string  `json:"sourceUrl"`
}

// SiteStatus is the result of a site-reputation check.
type SiteStatus struct {
	Domain           string `json:"domain"`
	Reputation       string `json:"reputation"` // High | Medium | Low
	ReliabilityScore int    `json:"reliabilityScore"`
	Reason           string `json:"reason"`
}
