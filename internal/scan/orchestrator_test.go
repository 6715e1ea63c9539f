package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elitetrace/factcheckd/internal/bus"
	"github.com/elitetrace/factcheckd/internal/store"
	"github.com/elitetrace/factcheckd/internal/verdict"
)

// memStore is an in-memory StateStore that records every state transition.
type memStore struct {
	apiKey   string
	state    store.ScanState
	stateLog []store.ScanState
	history  []verdict.HistoryEntry
}

func (m *memStore) APIKey() (string, error) { return m.apiKey, nil }

func (m *memStore) ScanState() (store.ScanState, error) { return m.state, nil }

func (m *memStore) SetScanState(s store.ScanState) error {
	m.state = s
	m.stateLog = append(m.stateLog, s)
	return nil
}

func (m *memStore) AppendHistory(e verdict.HistoryEntry) ([]verdict.HistoryEntry, error) {
	m.history = append([]verdict.HistoryEntry{e}, m.history...)
	if len(m.history) > store.MaxHistoryEntries {
		m.history = m.history[:store.MaxHistoryEntries]
	}
	return m.history, nil
}

type stubModel struct {
	textResponse   string
	textErr        error
	visionResponse string
	visionErr      error

	textCalls   int
	visionCalls int
	lastPrompt  string
}

func (s *stubModel) GenerateText(_ context.Context, prompt, _ string) (string, error) {
	s.textCalls++
	s.lastPrompt = prompt
	return s.textResponse, s.textErr
}

func (s *stubModel) GenerateVision(_ context.Context, prompt string, _ []byte, _ string) (string, error) {
	s.visionCalls++
	s.lastPrompt = prompt
	return s.visionResponse, s.visionErr
}

type stubRetriever struct {
	queries  []string
	results  map[string][]verdict.EvidenceItem
	inFlight bool
	overlap  bool
}

func (r *stubRetriever) Search(_ context.Context, query string) []verdict.EvidenceItem {
	if r.inFlight {
		r.overlap = true
	}
	r.inFlight = true
	defer func() { r.inFlight = false }()

	r.queries = append(r.queries, query)
	if items, ok := r.results[query]; ok {
		return items
	}
	return []verdict.EvidenceItem{}
}

func collect(ch <-chan bus.Event) []bus.Event {
	var events []bus.Event
	for {
		select {
		case e := <-ch:
			events = append(events, e)
			continue
		default:
		}
		return events
	}
}

func newTestOrchestrator(model *stubModel, retriever *stubRetriever, st *memStore) (*Orchestrator, *bus.Bus) {
	b := bus.New()
	var r = retriever
	if r == nil {
		return New(model, nil, st, b), b
	}
	return New(model, r, st, b), b
}

func TestCheckText_EmptyInputFailsWithoutNetwork(t *testing.T) {
	model := &stubModel{}
	retriever := &stubRetriever{}
	st := &memStore{apiKey: "key"}
	o, b := newTestOrchestrator(model, retriever, st)

	ch, unsub := b.Subscribe(func(e bus.Event) bool { return e.Kind == bus.KindAIResult })
	defer unsub()

	_, err := o.CheckText(context.Background(), "   \n", nil)
	require.ErrorIs(t, err, ErrEmptyInput)

	assert.Zero(t, model.textCalls, "model never invoked")
	assert.Empty(t, retriever.queries, "retriever never invoked")

	// Scanning was never entered: the only transition clears the state.
	require.Len(t, st.stateLog, 1)
	assert.False(t, st.stateLog[0].IsScanning)

	events := collect(ch)
	require.Len(t, events, 1)
	payload := events[0].Payload.(AIResultPayload)
	assert.Equal(t, ErrEmptyInput.Error(), payload.Error)
	assert.Nil(t, payload.Verdict)
}

func TestCheckText_MissingAPIKeyFailsFast(t *testing.T) {
	model := &stubModel{}
	st := &memStore{apiKey: ""}
	o, b := newTestOrchestrator(model, nil, st)

	ch, unsub := b.Subscribe(nil)
	defer unsub()

	_, err := o.CheckText(context.Background(), "Some claim.", nil)
	require.ErrorIs(t, err, ErrMissingKey)

	assert.Zero(t, model.textCalls)
	assert.False(t, st.state.IsScanning, "scanning flag cleared on failure")

	events := collect(ch)
	require.Len(t, events, 1)
	assert.Equal(t, ErrMissingKey.Error(), events[0].Payload.(AIResultPayload).Error)
}

func TestCheckText_EndToEnd(t *testing.T) {
	model := &stubModel{
		textResponse: `{"score":95,"label":"Reliable","category":"Science","explanation":"Basic astronomy.","sourceEvaluation":"Strong","confidenceLevel":"High","recommendation":"Accept","sources":[]}`,
	}
	retriever := &stubRetriever{results: map[string][]verdict.EvidenceItem{
		"The Earth orbits the Sun.": {{Title: "NASA", Link: "https://nasa.gov"}},
	}}
	st := &memStore{apiKey: "key"}
	o, b := newTestOrchestrator(model, retriever, st)

	ch, unsub := b.Subscribe(func(e bus.Event) bool { return e.Kind == bus.KindAIResult })
	defer unsub()

	before := time.Now().UnixMilli()
	v, err := o.CheckText(context.Background(), "The Earth orbits the Sun.", &Metadata{
		URL:   "https://example.org/article",
		Title: "Astronomy Basics",
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 95, v.Score)
	assert.Equal(t, verdict.LabelReliable, v.Label)

	// state sequence: scanning true, then cleared with the result
	require.Len(t, st.stateLog, 2)
	assert.True(t, st.stateLog[0].IsScanning)
	assert.Equal(t, statusTextScan, st.stateLog[0].ScanStatusText)
	assert.False(t, st.stateLog[1].IsScanning)
	require.NotNil(t, st.stateLog[1].LatestScanResult)
	assert.Equal(t, 95, st.stateLog[1].LatestScanResult.Score)

	// history appended with provenance and a recent timestamp
	require.Len(t, st.history, 1)
	entry := st.history[0]
	assert.Equal(t, "Astronomy Basics", entry.SourceTitle)
	assert.Equal(t, "https://example.org/article", entry.SourceURL)
	assert.GreaterOrEqual(t, entry.Timestamp, before)
	assert.NotEmpty(t, entry.ID)

	// exactly one AI_RESULT broadcast
	events := collect(ch)
	require.Len(t, events, 1)
	payload := events[0].Payload.(AIResultPayload)
	require.NotNil(t, payload.Verdict)
	assert.Equal(t, 95, payload.Verdict.Score)
	assert.Equal(t, model.textResponse, payload.Raw)
	assert.Equal(t, "ok", payload.Outcome)
	assert.Empty(t, payload.Error)
}

func TestCheckText_EvidenceGatheredSequentially(t *testing.T) {
	model := &stubModel{textResponse: `{"score":50,"label":"Uncertain","explanation":"x"}`}
	retriever := &stubRetriever{}
	st := &memStore{apiKey: "key"}
	o, _ := newTestOrchestrator(model, retriever, st)

	_, err := o.CheckText(context.Background(), "Sky is blue. Grass is green", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Sky is blue", "Grass is green"}, retriever.queries)
	assert.False(t, retriever.overlap, "lookups never overlap")
}

func TestCheckText_EvidenceEmbeddedInPrompt(t *testing.T) {
	model := &stubModel{textResponse: `{"score":50,"label":"Uncertain","explanation":"x"}`}
	retriever := &stubRetriever{results: map[string][]verdict.EvidenceItem{
		"Sky is blue": {{Title: "Optics 101", Snippet: "Rayleigh scattering", Link: "https://optics.example"}},
	}}
	st := &memStore{apiKey: "key"}
	o, _ := newTestOrchestrator(model, retriever, st)

	_, err := o.CheckText(context.Background(), "Sky is blue", nil)
	require.NoError(t, err)

	assert.Contains(t, model.lastPrompt, "Sky is blue")
	assert.Contains(t, model.lastPrompt, "Rayleigh scattering")
	assert.Contains(t, model.lastPrompt, "https://optics.example")
}

func TestCheckText_ModelFailureBroadcastsVerbatim(t *testing.T) {
	model := &stubModel{textErr: errors.New("Google API error: quota exceeded (429)")}
	st := &memStore{apiKey: "key"}
	o, b := newTestOrchestrator(model, nil, st)

	ch, unsub := b.Subscribe(nil)
	defer unsub()

	_, err := o.CheckText(context.Background(), "Some claim.", nil)
	require.Error(t, err)

	assert.Empty(t, st.history, "failed scans never append history")
	assert.False(t, st.state.IsScanning)
	assert.Nil(t, st.state.LatestScanResult)

	events := collect(ch)
	require.Len(t, events, 1)
	assert.Equal(t, "Google API error: quota exceeded (429)", events[0].Payload.(AIResultPayload).Error)
}

func TestCheckText_UnparsableModelOutputStillCompletes(t *testing.T) {
	model := &stubModel{textResponse: "I cannot answer in JSON, sorry."}
	st := &memStore{apiKey: "key"}
	o, b := newTestOrchestrator(model, nil, st)

	ch, unsub := b.Subscribe(func(e bus.Event) bool { return e.Kind == bus.KindAIResult })
	defer unsub()

	v, err := o.CheckText(context.Background(), "Some claim.", nil)
	require.NoError(t, err, "parse failures never fail the pipeline")
	assert.Equal(t, verdict.LabelError, v.Label)

	// still a completed scan: persisted, appended, broadcast
	require.Len(t, st.history, 1)
	events := collect(ch)
	require.Len(t, events, 1)
	assert.Equal(t, "failed", events[0].Payload.(AIResultPayload).Outcome)
}

func TestCheckVision(t *testing.T) {
	model := &stubModel{
		visionResponse: `{"score":30,"label":"Unreliable","category":"Vision Analysis","explanation":"Manipulated image."}`,
	}
	retriever := &stubRetriever{}
	st := &memStore{apiKey: "key"}
	o, _ := newTestOrchestrator(model, retriever, st)

	v, err := o.CheckVision(context.Background(), []byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	assert.Equal(t, 30, v.Score)

	assert.Equal(t, 1, model.visionCalls)
	assert.Zero(t, model.textCalls)
	assert.Empty(t, retriever.queries, "vision path skips evidence gathering")

	require.Len(t, st.history, 1)
	assert.Equal(t, visionSourceTitle, st.history[0].SourceTitle)
	assert.Equal(t, statusVisionScan, st.stateLog[0].ScanStatusText)
}

func TestCheckVision_EmptyImageFails(t *testing.T) {
	model := &stubModel{}
	st := &memStore{apiKey: "key"}
	o, _ := newTestOrchestrator(model, nil, st)

	_, err := o.CheckVision(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, model.visionCalls)
}

func TestReset(t *testing.T) {
	model := &stubModel{}
	st := &memStore{apiKey: "key"}
	o, _ := newTestOrchestrator(model, nil, st)

	o.SetSelection("selected text", &Metadata{Title: "Page"})
	require.NotNil(t, o.Selection())

	st.state = store.ScanState{IsScanning: true, ScanStatusText: statusTextScan}

	require.NoError(t, o.Reset())
	assert.Nil(t, o.Selection())
	assert.Equal(t, store.ScanState{}, st.state)
}

func TestSetSelection_Broadcasts(t *testing.T) {
	model := &stubModel{}
	st := &memStore{}
	o, b := newTestOrchestrator(model, nil, st)

	ch, unsub := b.Subscribe(func(e bus.Event) bool { return e.Kind == bus.KindScanResult })
	defer unsub()

	o.SetSelection("captured", &Metadata{URL: "https://example.org"})

	events := collect(ch)
	require.Len(t, events, 1)
	sel := events[0].Payload.(Selection)
	assert.Equal(t, "captured", sel.Text)
}

// Selection accessors are hit from parallel server handlers; this test
// exists for the race detector.
func TestSelection_ConcurrentAccess(t *testing.T) {
	model := &stubModel{}
	st := &memStore{}
	o, _ := newTestOrchestrator(model, nil, st)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			o.SetSelection("captured", nil)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if sel := o.Selection(); sel != nil {
				_ = sel.Text
			}
		}
	}()
	wg.Wait()

	require.NoError(t, o.Reset())
	assert.Nil(t, o.Selection())
}

func TestAnalyzeSite(t *testing.T) {
	model := &stubModel{
		textResponse: `{"reputation":"High","reason":"Established outlet","reliabilityScore":90}`,
	}
	st := &memStore{apiKey: "key"}
	o, b := newTestOrchestrator(model, nil, st)

	ch, unsub := b.Subscribe(func(e bus.Event) bool { return e.Kind == bus.KindSiteStatus })
	defer unsub()

	status, err := o.AnalyzeSite(context.Background(), "example.org")
	require.NoError(t, err)
	assert.Equal(t, "example.org", status.Domain)
	assert.Equal(t, "High", status.Reputation)
	assert.Equal(t, 90, status.ReliabilityScore)

	events := collect(ch)
	require.Len(t, events, 1)

	// site checks never touch the scan state machine
	assert.Empty(t, st.stateLog)
}

func TestAnalyzeSite_UnparsableResponse(t *testing.T) {
	model := &stubModel{textResponse: "not json"}
	st := &memStore{apiKey: "key"}
	o, b := newTestOrchestrator(model, nil, st)

	ch, unsub := b.Subscribe(nil)
	defer unsub()

	_, err := o.AnalyzeSite(context.Background(), "example.org")
	require.ErrorIs(t, err, ErrSiteAnalysis)
	assert.Empty(t, collect(ch), "no broadcast on failure")
}

func TestAnalyzeSite_FencedResponse(t *testing.T) {
	model := &stubModel{
		textResponse: "```json\n{\"reputation\":\"Low\",\"reason\":\"Known misinformation\",\"reliabilityScore\":10}\n```",
	}
	st := &memStore{apiKey: "key"}
	o, _ := newTestOrchestrator(model, nil, st)

	status, err := o.AnalyzeSite(context.Background(), "fake.news")
	require.NoError(t, err)
	assert.Equal(t, "Low", status.Reputation)
}

func TestHistoryCap_TwentyOneScansEvictOldest(t *testing.T) {
	model := &stubModel{textResponse: `{"score":50,"label":"Uncertain","explanation":"x"}`}
	st := &memStore{apiKey: "key"}
	o, _ := newTestOrchestrator(model, nil, st)

	for i := 0; i < store.MaxHistoryEntries+1; i++ {
		_, err := o.CheckText(context.Background(), "Claim number fixed.", &Metadata{Title: "t"})
		require.NoError(t, err)
	}

	assert.Len(t, st.history, store.MaxHistoryEntries)
}
