// Package llmclient implements the Unified LLM Client (spec §4.2): the
// single entry point phases call through, which applies model routing,
// per-phase history, the response cache, per-task provider overrides, and
// retry/backoff, before handing off to the Provider Registry.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"foundry.dev/core/internal/cache"
	"foundry.dev/core/internal/config"
	"foundry.dev/core/internal/logging"
	"foundry.dev/core/internal/pricing"
	"foundry.dev/core/internal/provider"
	"foundry.dev/core/internal/router"
)

// Phase names, used as history keys and router phase inputs.
const (
	PhaseScout     = "scout"
	PhaseArchitect = "architect"
	PhaseBuilder   = "builder"
)

// Fatal errors (spec §4.2, §7).
var ErrSerialization = errors.New("llmclient: serialization error")

// PhaseSetting is a (provider, model) pair validated once at construction.
type PhaseSetting struct {
	Provider string
	Model    string
}

// Settings is the {scout, architect, builder} PhaseConfig (spec §3).
type Settings struct {
	Scout     PhaseSetting
	Architect PhaseSetting
	Builder   PhaseSetting
}

// Client is the Unified LLM Client.
type Client struct {
	registry *provider.Registry
	cache    *cache.Cache
	router   *router.Router
	pricing  *pricing.Tracker
	settings Settings
	overrides map[int]config.PhaseModel
	sessionLog *logging.SessionLog

	histories map[string][]provider.Message
}

// New validates settings against registry and constructs a Client.
func New(registry *provider.Registry, c *cache.Cache, r *router.Router, tracker *pricing.Tracker, settings Settings, overrides map[int]config.PhaseModel, sessionLog *logging.SessionLog) (*Client, error) {
	for _, ps := range []PhaseSetting{settings.Scout, settings.Architect, settings.Builder} {
		if err := registry.ValidateConfig(ps.Provider, ps.Model); err != nil {
			return nil, err
		}
	}

	return &Client{
		registry:   registry,
		cache:      c,
		router:     r,
		pricing:    tracker,
		settings:   settings,
		overrides:  overrides,
		sessionLog: sessionLog,
		histories:  make(map[string][]provider.Message),
	}, nil
}

// CallOpts carries the optional parameters of a phase call.
type CallOpts struct {
	TaskNum     int // builder only; 0 means "not a numbered task"
	MaxTokens   int
	Temperature float64
	// WorkflowComplexity/HasDependencies/LargeFiles feed the router (spec §4.4).
	WorkflowComplexity string
	HasDependencies    bool
	LargeFiles         bool
	// Priority feeds the router's per-task scoring for builder calls.
	Priority int
}

// Scout calls the scout phase.
func (c *Client) Scout(ctx context.Context, prompt string, opts CallOpts) (provider.ProviderResponse, error) {
	return c.callWithConfig(ctx, PhaseScout, c.settings.Scout, prompt, opts)
}

// Architect calls the architect phase.
func (c *Client) Architect(ctx context.Context, prompt string, opts CallOpts) (provider.ProviderResponse, error) {
	return c.callWithConfig(ctx, PhaseArchitect, c.settings.Architect, prompt, opts)
}

// Builder calls the builder phase, optionally for a specific numbered task.
func (c *Client) Builder(ctx context.Context, prompt string, opts CallOpts) (provider.ProviderResponse, error) {
	return c.callWithConfig(ctx, PhaseBuilder, c.settings.Builder, prompt, opts)
}

// ResetHistory clears one phase's history, or every phase's if phase is "".
func (c *Client) ResetHistory(phase string) {
	if phase == "" {
		c.histories = make(map[string][]provider.Message)
		return
	}
	delete(c.histories, phase)
}

// History returns a copy of one phase's history.
func (c *Client) History(phase string) []provider.Message {
	h := c.histories[phase]
	out := make([]provider.Message, len(h))
	copy(out, h)
	return out
}

// callWithConfig implements spec §4.2's algorithm step by step.
func (c *Client) callWithConfig(ctx context.Context, phase string, base PhaseSetting, prompt string, opts CallOpts) (provider.ProviderResponse, error) {
	cfg := base

	// 1. Routing.
	var routeDecision router.Decision
	if c.router != nil {
		routeDecision = c.router.ModelFor(phase, router.Task{Priority: opts.Priority, Objective: prompt}, router.Context{
			WorkflowComplexity: opts.WorkflowComplexity,
			HasDependencies:    opts.HasDependencies,
			LargeFiles:         opts.LargeFiles,
		})
		if routeDecision.Model != "" && routeDecision.Model != cfg.Model {
			slog.DebugContext(ctx, "model router overrode model", "phase", phase, "from", cfg.Model, "to", routeDecision.Model, "score", routeDecision.Score)
			cfg.Model = routeDecision.Model
		}
	}

	// 4. Per-task override (applied after routing per spec: "routing still
	// applies unless the override bypasses it" — here the override wins
	// outright for provider/model, matching BUILDER_TASK_{n}_* semantics).
	if phase == PhaseBuilder && opts.TaskNum > 0 {
		if o, ok := c.overrides[opts.TaskNum]; ok {
			if o.Provider != "" {
				cfg.Provider = o.Provider
			}
			if o.Model != "" {
				cfg.Model = o.Model
			}
		}
	}

	history := c.histories[phase]
	historyBeforeCall := append([]provider.Message{}, history...)

	// 2. History update.
	history = append(history, provider.Message{Role: "user", Content: prompt})
	c.histories[phase] = history

	ctx = logging.With(ctx, logging.Fields{
		Phase:    logging.Ptr(phase),
		Provider: logging.Ptr(cfg.Provider),
		Model:    logging.Ptr(cfg.Model),
	})

	start := time.Now()

	// 3. Cache lookup.
	cacheMessages := toCacheMessages(historyBeforeCall)
	key, keyErr := cache.Key(cfg.Model, prompt, cacheMessages)
	if keyErr == nil && c.cache != nil {
		if entry, hit := c.cache.Get(key); hit {
			c.histories[phase] = append(c.histories[phase], provider.Message{Role: "assistant", Content: entry.Content})
			resp := provider.ProviderResponse{
				Content:      entry.Content,
				Model:        entry.Model,
				InputTokens:  entry.InputTokens,
				OutputTokens: entry.OutputTokens,
				FinishReason: "stop",
			}
			c.recordPricing(phase, cfg, resp)
			c.logSession(phase, cfg, resp, true, time.Since(start), nil)
			return resp, nil
		}
	}

	// 5. Provider call, with retry/backoff on retriable errors.
	resp, err := c.callProviderWithRetry(ctx, cfg, history, opts)
	c.logSession(phase, cfg, resp, false, time.Since(start), err)
	if err != nil {
		return provider.ProviderResponse{}, err
	}

	// 6. Cache write (non-fatal on error).
	if keyErr == nil && c.cache != nil {
		if err := c.cache.Put(key, cache.Entry{
			Content:      resp.Content,
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
			Model:        resp.Model,
		}); err != nil {
			slog.WarnContext(ctx, "cache write failed, continuing", "error", err)
		}
	}

	// 7. Finalize.
	c.histories[phase] = append(c.histories[phase], provider.Message{Role: "assistant", Content: resp.Content})
	c.recordPricing(phase, cfg, resp)

	return resp, nil
}

func (c *Client) callProviderWithRetry(ctx context.Context, cfg PhaseSetting, history []provider.Message, opts CallOpts) (provider.ProviderResponse, error) {
	p, ok := c.registry.Get(cfg.Provider)
	if !ok {
		return provider.ProviderResponse{}, fmt.Errorf("%w: %q", provider.ErrUnknownProvider, cfg.Provider)
	}

	var resp provider.ProviderResponse
	operation := func() error {
		var callErr error
		resp, callErr = p.Call(ctx, history, cfg.Model, provider.CallOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature})
		if callErr == nil {
			return nil
		}

		var ce *provider.CallError
		if errors.As(callErr, &ce) && !ce.Retryable {
			return backoff.Permanent(callErr)
		}
		return callErr
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return provider.ProviderResponse{}, err
	}
	return resp, nil
}

func (c *Client) recordPricing(phase string, cfg PhaseSetting, resp provider.ProviderResponse) {
	if c.pricing == nil {
		return
	}
	c.pricing.Record(phase, cfg.Provider, cfg.Model, resp.InputTokens, resp.OutputTokens)
}

func (c *Client) logSession(phase string, cfg PhaseSetting, resp provider.ProviderResponse, cacheHit bool, elapsed time.Duration, err error) {
	if c.sessionLog == nil {
		return
	}
	entry := logging.SessionLogEntry{
		Timestamp:        time.Now(),
		Phase:            phase,
		Provider:         cfg.Provider,
		Model:            cfg.Model,
		PromptTokens:     resp.InputTokens,
		CompletionTokens: resp.OutputTokens,
		CacheHit:         cacheHit,
		DurationMs:       elapsed.Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	_ = c.sessionLog.Append(entry)
}

func toCacheMessages(msgs []provider.Message) []cache.Message {
	out := make([]cache.Message, len(msgs))
	for i, m := range msgs {
		out[i] = cache.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
