// Package scan contains the orchestrator that drives one end-to-end
// analysis: evidence gathering, model invocation, verdict parsing,
// persistence, and broadcast.
package scan

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elitetrace/factcheckd/internal/bus"
	"github.com/elitetrace/factcheckd/internal/evidence"
	"github.com/elitetrace/factcheckd/internal/llm"
	"github.com/elitetrace/factcheckd/internal/store"
	"github.com/elitetrace/factcheckd/internal/verdict"
)

// Status messages persisted while a scan is in flight, so a UI that opens
// mid-scan can show progress before any broadcast reaches it.
const (
	statusTextScan   = "Tracing veracity across networks..."
	statusVisionScan = "Capturing and analyzing visual data..."
)

// visionSourceTitle labels history entries for scans with no page metadata.
const visionSourceTitle = "Vision Analysis"

// Scan failure messages rendered verbatim by the UI.
var (
	ErrEmptyInput   = errors.New("no text to analyze")
	ErrMissingKey   = errors.New("no Gemini API key found")
	ErrEmptyDomain  = errors.New("no domain to analyze")
	ErrSiteAnalysis = errors.New("site analysis returned no usable result")
)

// Metadata describes where a captured selection came from.
type Metadata struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Selection is the most recent captured text plus its provenance.
type Selection struct {
	Text     string    `json:"text"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// AIResultPayload is broadcast on scan completion or failure. On failure
// Error is set and every other field is absent.
type AIResultPayload struct {
	Verdict *verdict.Verdict `json:"verdict,omitempty"`
	Raw     string           `json:"raw,omitempty"`
	Outcome string           `json:"outcome,omitempty"`
	ScanID  string           `json:"scanId,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// StateStore is the slice of the persistent store the orchestrator needs.
type StateStore interface {
	APIKey() (string, error)
	ScanState() (store.ScanState, error)
	SetScanState(state store.ScanState) error
	AppendHistory(entry verdict.HistoryEntry) ([]verdict.HistoryEntry, error)
}

// Orchestrator owns the scan state machine. All captured state lives here
// rather than in package globals; one long-lived instance is shared by the
// server and the CLI front end.
//
// Single-flight is intentionally weak: a scan started while another is in
// flight is neither queued nor rejected. Both proceed, and whichever
// finishes last silently overwrites the persisted state. There is no scan
// identity check on completion; the ScanID in broadcasts lets listeners
// correlate, not the orchestrator.
type Orchestrator struct {
	model     llm.Client
	retriever evidence.Retriever // nil when no search engine is configured
	store     StateStore
	bus       *bus.Bus
	now       func() time.Time

	selectionMu sync.Mutex
	selection   *Selection
}

// New creates an orchestrator. retriever may be nil, in which case text
// scans skip evidence gathering and the model judges on its own knowledge.
func New(model llm.Client, retriever evidence.Retriever, st StateStore, b *bus.Bus) *Orchestrator {
	return &Orchestrator{
		model:     model,
		retriever: retriever,
		store:     st,
		bus:       b,
		now:       time.Now,
	}
}

// SetSelection records a newly captured selection and announces it.
// Selection accessors are safe for concurrent use; the server invokes them
// from parallel handler goroutines.
func (o *Orchestrator) SetSelection(text string, meta *Metadata) {
	sel := &Selection{Text: text, Metadata: meta}
	o.selectionMu.Lock()
	o.selection = sel
	o.selectionMu.Unlock()
	o.bus.Publish(bus.Event{Kind: bus.KindScanResult, Payload: *sel})
}

// Selection returns the currently captured selection, or nil.
func (o *Orchestrator) Selection() *Selection {
	o.selectionMu.Lock()
	defer o.selectionMu.Unlock()
	return o.selection
}

// Reset clears the captured selection and the persisted scan state. It is
// legal in any state. It does not cancel an in-flight model call; if one
// eventually resolves, its completion still writes the latest result and
// broadcasts — accepted behavior, documented rather than fixed.
func (o *Orchestrator) Reset() error {
	o.selectionMu.Lock()
	o.selection = nil
	o.selectionMu.Unlock()
	return o.store.SetScanState(store.ScanState{})
}

// CheckText runs the full text pipeline: evidence gathering per assertion,
// model call, parse, persist, history append, broadcast.
func (o *Orchestrator) CheckText(ctx context.Context, text string, meta *Metadata) (*verdict.Verdict, error) {
	if strings.TrimSpace(text) == "" {
		// Fail fast: no network call and Scanning is never entered.
		return nil, o.failScan(ErrEmptyInput)
	}

	if err := o.store.SetScanState(store.ScanState{
		IsScanning:     true,
		ScanStatusText: statusTextScan,
	}); err != nil {
		return nil, o.failScan(err)
	}

	apiKey, err := o.store.APIKey()
	if err != nil {
		return nil, o.failScan(err)
	}
	if apiKey == "" {
		return nil, o.failScan(ErrMissingKey)
	}

	// Evidence gathering strictly precedes the model call. Lookups run
	// sequentially, one assertion at a time, bounding outbound concurrency.
	results := o.gatherEvidence(ctx, text)

	prompt := buildTextPrompt(text, results)
	raw, err := o.model.GenerateText(ctx, prompt, apiKey)
	if err != nil {
		return nil, o.failScan(err)
	}

	return o.completeScan(raw, meta)
}

// CheckVision runs the screenshot pipeline: same shape as CheckText without
// the evidence-gathering step and with the image-specific prompt and
// timeout budget.
func (o *Orchestrator) CheckVision(ctx context.Context, imagePNG []byte) (*verdict.Verdict, error) {
	if len(imagePNG) == 0 {
		return nil, o.failScan(ErrEmptyInput)
	}

	if err := o.store.SetScanState(store.ScanState{
		IsScanning:     true,
		ScanStatusText: statusVisionScan,
	}); err != nil {
		return nil, o.failScan(err)
	}

	apiKey, err := o.store.APIKey()
	if err != nil {
		return nil, o.failScan(err)
	}
	if apiKey == "" {
		return nil, o.failScan(ErrMissingKey)
	}

	raw, err := o.model.GenerateVision(ctx, buildVisionPrompt(), imagePNG, apiKey)
	if err != nil {
		return nil, o.failScan(err)
	}

	return o.completeScan(raw, nil)
}

// AnalyzeSite asks the model for a reputation assessment of a domain.
// It does not touch the scan state machine; a SiteStatus is broadcast only
// on success and failures are returned to the caller without a broadcast.
func (o *Orchestrator) AnalyzeSite(ctx context.Context, domain string) (*verdict.SiteStatus, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, ErrEmptyDomain
	}

	apiKey, err := o.store.APIKey()
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, ErrMissingKey
	}

	raw, err := o.model.GenerateText(ctx, buildSitePrompt(domain), apiKey)
	if err != nil {
		return nil, err
	}

	status, ok := parseSiteStatus(raw)
	if !ok {
		return nil, ErrSiteAnalysis
	}
	status.Domain = domain

	o.bus.Publish(bus.Event{Kind: bus.KindSiteStatus, Payload: *status})
	return status, nil
}

// gatherEvidence resolves the retriever sequentially for every assertion
// derived from the text. Per-lookup failures have already been absorbed by
// the retriever; a nil retriever yields no evidence at all.
func (o *Orchestrator) gatherEvidence(ctx context.Context, text string) map[string][]verdict.EvidenceItem {
	results := make(map[string][]verdict.EvidenceItem)
	if o.retriever == nil {
		return results
	}
	for _, assertion := range evidence.SplitAssertions(text) {
		results[assertion] = o.retriever.Search(ctx, assertion)
	}
	return results
}

// completeScan is the Completed transition: parse, persist, append history,
// then broadcast. Persistence strictly precedes the broadcasts so a
// listener that re-queries storage on receipt observes consistent state.
func (o *Orchestrator) completeScan(raw string, meta *Metadata) (*verdict.Verdict, error) {
	v, outcome := verdict.Parse(raw)

	if err := o.store.SetScanState(store.ScanState{
		IsScanning:       false,
		LatestScanResult: &v,
	}); err != nil {
		return nil, o.failScan(err)
	}

	entry := verdict.HistoryEntry{
		ID:          uuid.New().String(),
		Verdict:     v,
		Timestamp:   o.now().UnixMilli(),
		SourceTitle: visionSourceTitle,
	}
	if meta != nil {
		if meta.Title != "" {
			entry.SourceTitle = meta.Title
		}
		entry.SourceURL = meta.URL
	}

	history, err := o.store.AppendHistory(entry)
	if err != nil {
		// The verdict itself is already persisted; a history write failure
		// should not fail the scan.
		log.Printf("scan: history append failed: %v", err)
	} else {
		o.bus.Publish(bus.Event{Kind: bus.KindHistoryUpdated, Payload: history})
	}

	o.bus.Publish(bus.Event{Kind: bus.KindAIResult, Payload: AIResultPayload{
		Verdict: &v,
		Raw:     raw,
		Outcome: outcome.String(),
		ScanID:  entry.ID,
	}})

	return &v, nil
}

// failScan is the Failed transition: clear the scanning flag (result left
// null), broadcast the error verbatim, and return it. History is not
// appended. Every path that sets isScanning true funnels through here or
// completeScan, so the flag can never stick.
func (o *Orchestrator) failScan(cause error) error {
	if err := o.store.SetScanState(store.ScanState{}); err != nil {
		log.Printf("scan: failed to clear scan state: %v", err)
	}
	o.bus.Publish(bus.Event{Kind: bus.KindAIResult, Payload: AIResultPayload{
		Error: cause.Error(),
	}})
	return cause
}
