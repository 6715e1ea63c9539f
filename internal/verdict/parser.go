package verdict

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var (
	compiledSchema *gojsonschema.Schema
	schemaOnce     sync.Once
)

// Outcome tags how much of the parsed verdict came from the model versus
// from defaults.
type Outcome int

// Outcome values.
const (
	// OutcomeOK means the model output was a fully schema-valid verdict.
	OutcomeOK Outcome = iota
	// OutcomePartial means the output decoded as JSON but one or more
	// fields were missing or mistyped and were replaced with defaults.
	OutcomePartial
	// OutcomeFailed means the output was not decodable JSON at all and the
	// returned verdict is a full default with label Error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomePartial:
		return "partial"
	default:
		return "failed"
	}
}

// excerptLen bounds the diagnostic excerpt kept from unparsable output.
const excerptLen = 50

// Parse turns raw model text into a Verdict. It never fails: fenced or
// malformed output degrades to documented defaults rather than an error,
// because the upstream text comes from a generative model with no
// output-format guarantee despite prompt instructions.
func Parse(raw string) (Verdict, Outcome) {
	clean := StripFences(raw)

	// A nil doc means the literal "null", which decodes without error but
	// is not an object; it takes the failure path like any other garbage.
	var doc map[string]any
	if err := json.Unmarshal([]byte(clean), &doc); err != nil || doc == nil {
		v := Default()
		v.Label = LabelError
		v.Explanation = "failed to parse model output: " + excerpt(raw)
		return v, OutcomeFailed
	}

	v := Default()
	substituted := false

	if score, ok := intField(doc, "score"); ok {
		v.Score = clampScore(score)
	} else {
		substituted = true
	}
	if label, ok := stringField(doc, "label"); ok {
		v.Label = Label(label)
	} else {
		substituted = true
	}
	if category, ok := stringField(doc, "category"); ok {
		v.Category = category
	} else {
		substituted = true
	}
	if explanation, ok := stringField(doc, "explanation"); ok {
		v.Explanation = explanation
	} else {
		substituted = true
	}
	if eval, ok := stringField(doc, "sourceEvaluation"); ok {
		v.SourceEvaluation = eval
	} else {
		substituted = true
	}
	if conf, ok := stringField(doc, "confidenceLevel"); ok {
		v.ConfidenceLevel = Confidence(conf)
	} else {
		substituted = true
	}
	if rec, ok := stringField(doc, "recommendation"); ok {
		v.Recommendation = rec
	} else {
		substituted = true
	}
	if sources, ok := sourcesField(doc); ok {
		v.Sources = sources
	} else {
		substituted = true
	}

	if !substituted && schemaValid(clean) {
		return v, OutcomeOK
	}
	return v, OutcomePartial
}

// StripFences removes markdown code-fence wrappers from model output.
// Models often wrap JSON in ```json ... ``` blocks even when instructed
// not to.
func StripFences(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip a potential language identifier on the first line.
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}

// schemaValid reports whether the cleaned JSON document satisfies the full
// verdict schema. Schema failures only downgrade the outcome tag; they never
// reject the parsed fields.
func schemaValid(clean string) bool {
	schemaOnce.Do(func() {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
		if err != nil {
			// The schema is embedded and fixed; a compile failure is a
			// programming error surfaced loudly in tests.
			panic(fmt.Sprintf("verdict: invalid embedded schema: %v", err))
		}
		compiledSchema = s
	})

	result, err := compiledSchema.Validate(gojsonschema.NewStringLoader(clean))
	if err != nil {
		return false
	}
	return result.Valid()
}

func excerpt(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= excerptLen {
		return raw
	}
	// Back off to a rune boundary so the excerpt stays valid UTF-8.
	cut := excerptLen
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut] + "..."
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// intField extracts an integer-valued field. JSON numbers decode as float64;
// non-integral values are rejected as implausible.
func intField(doc map[string]any, key string) (int, bool) {
	raw, exists := doc[key]
	if !exists {
		return 0, false
	}
	f, ok := raw.(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func stringField(doc map[string]any, key string) (string, bool) {
	raw, exists := doc[key]
	if !exists {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	return s, true
}

// sourcesField extracts the sources array. Items accept both "link" and
// "url" keys because the model is inconsistent about which one it emits.
// Malformed items are skipped rather than failing the whole field.
func sourcesField(doc map[string]any) ([]EvidenceItem, bool) {
	raw, exists := doc["sources"]
	if !exists {
		return nil, false
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, false
	}

	items := make([]EvidenceItem, 0, len(arr))
	for _, entry := range arr {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := EvidenceItem{}
		if title, ok := stringField(obj, "title"); ok {
			item.Title = title
		}
		if snippet, ok := stringField(obj, "snippet"); ok {
			item.Snippet = snippet
		}
		if link, ok := stringField(obj, "link"); ok {
			item.Link = link
		} else if url, ok := stringField(obj, "url"); ok {
			item.Link = url
		}
		if item.Title == "" && item.Link == "" {
			continue
		}
		items = append(items, item)
	}
	return items, true
}
