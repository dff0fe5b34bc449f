// Package logging provides structured, context-propagated logging on top of
// log/slog, mirroring the teacher repository's common/logger package: fields
// accumulate in the context and are injected into every record by a handler
// wrapper, rather than threaded through every call site.
package logging

import "context"

type contextKey string

const fieldsKey contextKey = "foundry_log_fields"

// Fields holds structured identifiers automatically attached to every log
// record emitted within a context: which session, phase, task, and provider
// produced it.
type Fields struct {
	SessionID  *string
	Phase      *string // scout | architect | builder
	TaskID     *string // subagent task id, empty outside Builder/parallel paths
	Provider   *string
	Model      *string
	Mode       *string // new | fix | enhance
	Component  string  // e.g. "foundry.llmclient", "foundry.coordinator.builder"
}

// With enriches ctx with fields, merging over any fields already present.
// Newer non-nil/non-empty values take precedence.
func With(ctx context.Context, fields Fields) context.Context {
	merged := merge(From(ctx), fields)
	return context.WithValue(ctx, fieldsKey, merged)
}

// From retrieves the Fields attached to ctx, or the zero value if none.
func From(ctx context.Context) Fields {
	if f, ok := ctx.Value(fieldsKey).(Fields); ok {
		return f
	}
	return Fields{}
}

func merge(existing, next Fields) Fields {
	result := existing
	if next.SessionID != nil {
		result.SessionID = next.SessionID
	}
	if next.Phase != nil {
		result.Phase = next.Phase
	}
	if next.TaskID != nil {
		result.TaskID = next.TaskID
	}
	if next.Provider != nil {
		result.Provider = next.Provider
	}
	if next.Model != nil {
		result.Model = next.Model
	}
	if next.Mode != nil {
		result.Mode = next.Mode
	}
	if next.Component != "" {
		result.Component = next.Component
	}
	return result
}

// Ptr is a small helper for inline Fields literals: logging.With(ctx,
// logging.Fields{Phase: logging.Ptr("builder")}).
func Ptr[T any](v T) *T {
	return &v
}

// Truncate shortens s to maxLen runes, appending "..." when truncated. Useful
// for logging prompts and LLM output without flooding the log sink.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
