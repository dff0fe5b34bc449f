package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Config controls handler selection, matching the teacher's production vs.
// development split in common/logger.Setup.
type Config struct {
	Production bool
	Level      slog.Level
	// RunLogDir, when non-empty and not in production, receives a dated
	// {timestamp}/foundry.log copy of the text log. The per-interaction
	// session.jsonl is written separately by SessionLog.
	RunLogDir string
}

// Setup builds and installs the process-wide slog.Logger, returning it for
// callers that want a local reference instead of relying on slog's default.
func Setup(cfg Config) (*slog.Logger, error) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: cfg.Level}

	if cfg.Production {
		handler = &traceHandler{inner: slog.NewJSONHandler(os.Stdout, opts)}
	} else {
		writers := []*os.File{os.Stdout}
		if cfg.RunLogDir != "" {
			f, err := createDevWriter(cfg.RunLogDir)
			if err != nil {
				return nil, fmt.Errorf("creating dev log file: %w", err)
			}
			writers = append(writers, f)
		}
		ws := make([]io.Writer, len(writers))
		for i, f := range writers {
			ws[i] = f
		}
		handler = &traceHandler{inner: slog.NewTextHandler(io.MultiWriter(ws...), opts)}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func createDevWriter(baseDir string) (*os.File, error) {
	dated := filepath.Join(baseDir, time.Now().Format("20060102-150405"))
	if err := os.MkdirAll(dated, 0o755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(dated, "foundry.log"))
}

// traceHandler wraps an slog.Handler, injecting OTel trace/span IDs and
// context-carried Fields into every record, mirroring common/logger.TraceHandler.
type traceHandler struct {
	inner slog.Handler
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}

	fields := From(ctx)
	if fields.SessionID != nil {
		r.AddAttrs(slog.String("session_id", *fields.SessionID))
	}
	if fields.Phase != nil {
		r.AddAttrs(slog.String("phase", *fields.Phase))
	}
	if fields.TaskID != nil {
		r.AddAttrs(slog.String("task_id", *fields.TaskID))
	}
	if fields.Provider != nil {
		r.AddAttrs(slog.String("provider", *fields.Provider))
	}
	if fields.Model != nil {
		r.AddAttrs(slog.String("model", *fields.Model))
	}
	if fields.Mode != nil {
		r.AddAttrs(slog.String("mode", *fields.Mode))
	}
	if fields.Component != "" {
		r.AddAttrs(slog.String("component", fields.Component))
	}

	return h.inner.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{inner: h.inner.WithGroup(name)}
}
