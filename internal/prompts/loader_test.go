package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_KnownPrompts(t *testing.T) {
	for _, key := range []string{"analyze-text", "analyze-vision", "analyze-site"} {
		prompt, err := Get("scan.json", key)
		require.NoError(t, err, "key %s", key)
		assert.NotEmpty(t, prompt)
		assert.Contains(t, prompt, "JSON", "every prompt carries the strict output instruction")
	}
}

func TestGet_UnknownKey(t *testing.T) {
	_, err := Get("scan.json", "does-not-exist")
	assert.Error(t, err)
}

func TestGet_UnknownFile(t *testing.T) {
	_, err := Get("missing.json", "analyze-text")
	assert.Error(t, err)
}

func TestMustGet_PanicsOnMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("scan.json", "does-not-exist")
	})
}

func TestFormat(t *testing.T) {
	template := "check {{.Text}} against {{.Evidence}}"
	result := Format(template, map[string]string{
		"Text":     "the claim",
		"Evidence": "[]",
	})
	assert.Equal(t, "check the claim against []", result)
}

func TestFormat_UnusedPlaceholderLeftIntact(t *testing.T) {
	result := Format("hello {{.Name}}", map[string]string{"Other": "x"})
	assert.True(t, strings.Contains(result, "{{.Name}}"))
}
