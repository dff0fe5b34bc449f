package provider

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openai/openai-go"
)

// IsRetryable classifies an error from any provider call as retriable
// (rate limit, transient network, 5xx) or permanent (auth, bad request),
// the same classification the teacher's common/llm/client.go applies to
// openai-go errors, generalized across providers.
func IsRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		retryable := apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
		if retryable {
			slog.WarnContext(ctx, "provider call failed, will retry", "status_code", apiErr.StatusCode, "error", err)
		} else {
			slog.ErrorContext(ctx, "provider call failed, not retryable", "status_code", apiErr.StatusCode, "error", err)
		}
		return retryable
	}

	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Retryable
	}

	// No structured API error means this failed before a response came
	// back (DNS, dial, TLS) — treat as transient by default.
	return true
}
