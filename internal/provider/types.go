// Package provider implements the Provider Registry (spec §4.1): a
// plugin-style enumeration of LLM providers, each exposing a uniform call
// interface, modeled on the teacher's common/llm.AgentClient abstraction
// but generalized from tool-calling chat to the phase-oriented call shape
// the Unified LLM Client needs.
package provider

import "context"

// Message is one turn of a phase history (spec §3).
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// ProviderResponse is the normalized, immutable result of any provider call.
type ProviderResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	FinishReason string
}

// TotalTokens returns InputTokens + OutputTokens.
func (r ProviderResponse) TotalTokens() int { return r.InputTokens + r.OutputTokens }

// Model is a provider-scoped model descriptor.
type Model struct {
	Name              string
	DisplayName       string
	ContextWindow     int
	SupportsVision    bool
	SupportsStreaming bool
	Description       string
}

// ModelPricing is used for cost estimates only; never consulted on the
// request path.
type ModelPricing struct {
	Provider            string
	Model               string
	InputCostPer1M      float64
	OutputCostPer1M     float64
	ContextWindow       int
	UpdatedAt           string
}

// CallOptions carries the remaining call parameters beyond messages/model.
type CallOptions struct {
	MaxTokens   int
	Temperature float64
}

// CallError distinguishes retriable (rate limit, transient network) from
// permanent (auth, bad request) provider errors, generalizing the teacher's
// EngagementError{Retryable} into the provider layer.
type CallError struct {
	Err       error
	Retryable bool
}

func (e *CallError) Error() string { return e.Err.Error() }
func (e *CallError) Unwrap() error { return e.Err }

// NewRetryableError wraps err as a retriable CallError.
func NewRetryableError(err error) *CallError { return &CallError{Err: err, Retryable: true} }

// NewPermanentError wraps err as a permanent CallError.
func NewPermanentError(err error) *CallError { return &CallError{Err: err, Retryable: false} }

// Provider is the capability set every LLM backend implements (spec §4.1).
type Provider interface {
	Name() string
	DisplayName() string
	IsConfigured() bool
	AvailableModels() []Model
	ValidateModel(name string) bool
	Call(ctx context.Context, messages []Message, model string, opts CallOptions) (ProviderResponse, error)
	FallbackPricing() map[string]ModelPricing
}
