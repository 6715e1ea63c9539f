// Package llm wraps the Gemini generative API with the timeout, retry, and
// error-classification discipline the scan pipeline depends on.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Client is an abstraction over the generative model provider.
type Client interface {
	// GenerateText runs a text-only prompt and returns the raw model text.
	GenerateText(ctx context.Context, prompt, apiKey string) (string, error)
	// GenerateVision runs a text+image prompt and returns the raw model text.
	GenerateVision(ctx context.Context, prompt string, imagePNG []byte, apiKey string) (string, error)
}

// Options configures the Gemini client.
type Options struct {
	Model         string
	TextTimeout   time.Duration
	VisionTimeout time.Duration
	// Retries is the number of additional attempts after the first failure.
	// Retries are full re-attempts of the same prompt with no backoff; a
	// retried call may consume additional quota.
	Retries     int
	Temperature float32
}

// DefaultOptions returns the production configuration. Vision calls get the
// longer timeout budget because image payloads are slower end to end.
func DefaultOptions() *Options {
	return &Options{
		Model:         "gemini-2.5-flash",
		TextTimeout:   20 * time.Second,
		VisionTimeout: 30 * time.Second,
		Retries:       2,
		Temperature:   0.1,
	}
}

// GeminiClient implements Client for Google Gemini.
type GeminiClient struct {
	opts *Options
}

// NewGeminiClient creates a Gemini client. The API key is supplied per call,
// not held by the client, so a key rotated in the store takes effect on the
// next scan.
func NewGeminiClient(opts *Options) *GeminiClient {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &GeminiClient{opts: opts}
}

// GenerateText implements Client.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt, apiKey string) (string, error) {
	if apiKey == "" {
		return "", &ModelError{Reason: ReasonAPIError, Code: 401, Message: "API key is required"}
	}
	return c.callWithRetry(ctx, c.opts.TextTimeout, func(ctx context.Context) (string, error) {
		return c.generate(ctx, apiKey, genai.Text(prompt))
	})
}

// GenerateVision implements Client.
func (c *GeminiClient) GenerateVision(ctx context.Context, prompt string, imagePNG []byte, apiKey string) (string, error) {
	if apiKey == "" {
		return "", &ModelError{Reason: ReasonAPIError, Code: 401, Message: "API key is required"}
	}
	return c.callWithRetry(ctx, c.opts.VisionTimeout, func(ctx context.Context) (string, error) {
		return c.generate(ctx, apiKey, genai.Text(prompt), genai.ImageData("png", imagePNG))
	})
}

// callWithRetry runs one attempt per loop iteration, up to Retries extra
// attempts after the first. Each attempt gets its own timeout; only
// retryable failures consume the remaining attempts.
func (c *GeminiClient) callWithRetry(ctx context.Context, timeout time.Duration, attempt func(context.Context) (string, error)) (string, error) {
	var lastErr *ModelError
	for i := 0; i <= c.opts.Retries; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := attempt(attemptCtx)
		// The timeout timer must be released on either path.
		cancel()

		if err == nil {
			return text, nil
		}
		// The gRPC transport reports a blown per-attempt deadline as a
		// status error that does not unwrap to context.DeadlineExceeded,
		// so consult the attempt context directly.
		if attemptCtx.Err() == context.DeadlineExceeded {
			err = context.DeadlineExceeded
		}
		lastErr = Classify(err)
		if !lastErr.Retryable() {
			return "", lastErr
		}
	}
	return "", lastErr
}

// generate performs a single Gemini invocation. A fresh provider client is
// created per call so the API key is re-read on every invocation, matching
// how the key rotates through the store.
func (c *GeminiClient) generate(ctx context.Context, apiKey string, parts ...genai.Part) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Close() }()

	model := client.GenerativeModel(c.opts.Model)
	model.SetTemperature(c.opts.Temperature)
	model.SafetySettings = permissiveSafetySettings()

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}

	return extractText(resp)
}

// permissiveSafetySettings disables provider-side blocking for the harm
// categories fact-check prompts routinely brush against (the content under
// analysis is frequently about violence, politics, or health).
func permissiveSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, cat := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  cat,
			Threshold: genai.HarmBlockNone,
		})
	}
	return settings
}

// extractText concatenates every text fragment of the first candidate in
// order. A response with zero candidates is a terminal content-policy
// failure, not a transient one.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &ModelError{
			Reason:      ReasonNoCandidates,
			BlockReason: blockReason(resp),
		}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &ModelError{Reason: ReasonNoCandidates, BlockReason: "FILTERED_OR_EMPTY"}
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", &ModelError{Reason: ReasonNoCandidates, BlockReason: "FILTERED_OR_EMPTY"}
	}
	return sb.String(), nil
}

// blockReason surfaces the provider's block reason if present, else the
// generic filtered-or-empty marker.
func blockReason(resp *genai.GenerateContentResponse) string {
	if resp.PromptFeedback == nil {
		return "FILTERED_OR_EMPTY"
	}
	switch resp.PromptFeedback.BlockReason {
	case genai.BlockReasonSafety:
		return "SAFETY"
	case genai.BlockReasonOther:
		return "OTHER"
	default:
		return "FILTERED_OR_EMPTY"
	}
}

// Classify maps an arbitrary call error onto the ModelError taxonomy.
// Errors that already carry a classification pass through unchanged.
func Classify(err error) *ModelError {
	var modelErr *ModelError
	if errors.As(err, &modelErr) {
		return modelErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ModelError{Reason: ReasonTimeout, Cause: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &ModelError{
			Reason:  ReasonAPIError,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Cause:   err,
		}
	}

	return &ModelError{Reason: ReasonNetwork, Cause: err}
}
