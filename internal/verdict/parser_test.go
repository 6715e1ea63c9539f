package verdict

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FullyValidVerdict(t *testing.T) {
	raw := `{
		"score": 95,
		"label": "Reliable",
		"category": "Science",
		"explanation": "Well supported by multiple sources.",
		"sourceEvaluation": "Reputable outlets",
		"confidenceLevel": "High",
		"recommendation": "Accept",
		"sources": [
			{"title": "NASA", "snippet": "Orbital mechanics", "link": "https://nasa.gov"}
		]
	}`

	v, outcome := Parse(raw)
	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, 95, v.Score)
	assert.Equal(t, LabelReliable, v.Label)
	assert.Equal(t, "Science", v.Category)
	assert.Equal(t, ConfidenceHigh, v.ConfidenceLevel)
	require.Len(t, v.Sources, 1)
	assert.Equal(t, "https://nasa.gov", v.Sources[0].Link)
}

func TestParse_MissingFieldsGetDefaults(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		validate func(*testing.T, Verdict)
	}{
		{
			name: "missing score and label",
			raw:  `{"explanation": "hard to tell"}`,
			validate: func(t *testing.T, v Verdict) {
				assert.Equal(t, 0, v.Score)
				assert.Equal(t, LabelUnknown, v.Label)
				assert.Equal(t, "hard to tell", v.Explanation)
				assert.Equal(t, ConfidenceLow, v.ConfidenceLevel)
				assert.Empty(t, v.Sources)
			},
		},
		{
			name: "present fields preserved",
			raw:  `{"score": 40, "label": "Uncertain"}`,
			validate: func(t *testing.T, v Verdict) {
				assert.Equal(t, 40, v.Score)
				assert.Equal(t, LabelUncertain, v.Label)
				assert.Equal(t, "", v.Explanation)
			},
		},
		{
			name: "mistyped score falls back",
			raw:  `{"score": "ninety", "label": "Reliable", "explanation": "x"}`,
			validate: func(t *testing.T, v Verdict) {
				assert.Equal(t, 0, v.Score)
				assert.Equal(t, LabelReliable, v.Label)
			},
		},
		{
			name: "empty object",
			raw:  `{}`,
			validate: func(t *testing.T, v Verdict) {
				assert.Equal(t, Default(), v)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, outcome := Parse(tt.raw)
			assert.Equal(t, OutcomePartial, outcome)
			tt.validate(t, v)
		})
	}
}

func TestParse_MalformedInputNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"not json at all",
		"{broken",
		`"just a string"` + "x",
		"```json\n{still broken\n```",
		strings.Repeat("a", 1000),
		"null",
	}

	for _, raw := range inputs {
		v, outcome := Parse(raw)
		assert.Equal(t, OutcomeFailed, outcome, "input: %q", raw)
		assert.Equal(t, LabelError, v.Label)
		assert.Contains(t, v.Explanation, "failed to parse model output")
	}
}

func TestParse_ExplanationExcerptBounded(t *testing.T) {
	raw := strings.Repeat("z", 500)
	v, outcome := Parse(raw)
	assert.Equal(t, OutcomeFailed, outcome)
	// prefix + 50 chars + ellipsis
	assert.LessOrEqual(t, len(v.Explanation), len("failed to parse model output: ")+excerptLen+3)
}

func TestParse_ExcerptKeepsValidUTF8(t *testing.T) {
	// Multi-byte runes positioned so a naive byte cut lands mid-rune.
	raw := "a" + strings.Repeat("é", 200)
	v, outcome := Parse(raw)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.True(t, utf8.ValidString(v.Explanation))
	assert.LessOrEqual(t, len(v.Explanation), len("failed to parse model output: ")+excerptLen+3)
}

func TestParse_FencedJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "json fence",
			raw:  "```json\n{\"score\": 80, \"label\": \"Reliable\", \"explanation\": \"ok\"}\n```",
		},
		{
			name: "bare fence",
			raw:  "```\n{\"score\": 80, \"label\": \"Reliable\", \"explanation\": \"ok\"}\n```",
		},
		{
			name: "fence with surrounding whitespace",
			raw:  "  \n```json\n{\"score\": 80, \"label\": \"Reliable\", \"explanation\": \"ok\"}\n```\n  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, outcome := Parse(tt.raw)
			assert.NotEqual(t, OutcomeFailed, outcome)
			assert.Equal(t, 80, v.Score)
			assert.Equal(t, LabelReliable, v.Label)
		})
	}
}

func TestParse_SourcesAcceptURLKey(t *testing.T) {
	raw := `{
		"score": 70, "label": "Uncertain", "explanation": "mixed",
		"sources": [
			{"title": "A", "url": "https://a.example"},
			{"title": "B", "link": "https://b.example"},
			"garbage entry",
			{}
		]
	}`

	v, _ := Parse(raw)
	require.Len(t, v.Sources, 2)
	assert.Equal(t, "https://a.example", v.Sources[0].Link)
	assert.Equal(t, "https://b.example", v.Sources[1].Link)
}

func TestParse_ScoreClamped(t *testing.T) {
	v, _ := Parse(`{"score": 250, "label": "Reliable", "explanation": "x"}`)
	assert.Equal(t, 100, v.Score)

	v, _ = Parse(`{"score": -5, "label": "Unreliable", "explanation": "x"}`)
	assert.Equal(t, 0, v.Score)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fence with language tag", "```javascript\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripFences(tt.input))
		})
	}
}
