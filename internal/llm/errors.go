package llm

import "fmt"

// Reason classifies a model call failure.
type Reason string

// Failure reasons. Timeout and Network are transient and retried up to the
// configured budget; APIError and NoCandidates are terminal.
const (
	ReasonTimeout      Reason = "timeout"
	ReasonAPIError     Reason = "api_error"
	ReasonNoCandidates Reason = "no_candidates"
	ReasonNetwork      Reason = "network"
)

// ModelError is the classified failure surfaced by the model client after
// its retry budget is exhausted. The message is rendered verbatim to the end
// user, so Error() produces a direct human-readable reason rather than a
// generic code.
type ModelError struct {
	Reason      Reason
	Code        int    // HTTP status for APIError
	Message     string // provider message for APIError
	BlockReason string // provider block reason for NoCandidates
	Cause       error
}

func (e *ModelError) Error() string {
	switch e.Reason {
	case ReasonTimeout:
		return "model request timed out"
	case ReasonAPIError:
		return fmt.Sprintf("Google API error: %s (%d)", e.Message, e.Code)
	case ReasonNoCandidates:
		return fmt.Sprintf("model returned no candidates. Reason: %s", e.BlockReason)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("network error: %v", e.Cause)
		}
		return "network error"
	}
}

func (e *ModelError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure is worth a full re-attempt.
// Explicit provider rejection and content filtering are terminal.
func (e *ModelError) Retryable() bool {
	return e.Reason == ReasonTimeout || e.Reason == ReasonNetwork
}
