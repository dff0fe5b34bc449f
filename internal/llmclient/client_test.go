package llmclient

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundry.dev/core/internal/cache"
	"foundry.dev/core/internal/config"
	"foundry.dev/core/internal/provider"
	"foundry.dev/core/internal/router"
)

type countingProvider struct {
	name  string
	calls int32
}

func (p *countingProvider) Name() string        { return p.name }
func (p *countingProvider) DisplayName() string  { return p.name }
func (p *countingProvider) IsConfigured() bool   { return true }
func (p *countingProvider) AvailableModels() []provider.Model {
	return []provider.Model{{Name: "default-model"}, {Name: "complex-model"}}
}
func (p *countingProvider) ValidateModel(name string) bool { return true }
func (p *countingProvider) FallbackPricing() map[string]provider.ModelPricing { return nil }
func (p *countingProvider) Call(ctx context.Context, messages []provider.Message, model string, opts provider.CallOptions) (provider.ProviderResponse, error) {
	n := atomic.AddInt32(&p.calls, 1)
	return provider.ProviderResponse{Content: "response", Model: model, InputTokens: 10, OutputTokens: int(n)}, nil
}

func newTestClient(t *testing.T, r *router.Router) (*Client, *countingProvider, *cache.Cache) {
	t.Helper()
	reg := provider.NewRegistry()
	p := &countingProvider{name: "stub"}
	reg.Register(p)

	c, err := cache.New(t.TempDir(), 0)
	require.NoError(t, err)

	settings := Settings{
		Scout:     PhaseSetting{Provider: "stub", Model: "default-model"},
		Architect: PhaseSetting{Provider: "stub", Model: "default-model"},
		Builder:   PhaseSetting{Provider: "stub", Model: "default-model"},
	}
	client, err := New(reg, c, r, nil, settings, nil, nil)
	require.NoError(t, err)
	return client, p, c
}

// S1: two consecutive identical scout calls with empty history yield one
// provider request and one cache hit; the second call's content matches.
func TestScoutCacheHit(t *testing.T) {
	client, p, _ := newTestClient(t, nil)
	ctx := context.Background()

	first, err := client.Scout(ctx, "research this codebase", CallOpts{})
	require.NoError(t, err)

	client.ResetHistory(PhaseScout) // independent session: identical prior-history shape
	second, err := client.Scout(ctx, "research this codebase", CallOpts{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls), "second identical call should be served from cache")
	assert.Equal(t, first.Content, second.Content)
}

func TestHistoryGrowsAcrossCalls(t *testing.T) {
	client, _, _ := newTestClient(t, nil)
	ctx := context.Background()

	_, err := client.Builder(ctx, "write main.go", CallOpts{})
	require.NoError(t, err)
	_, err = client.Builder(ctx, "write utils.go", CallOpts{})
	require.NoError(t, err)

	h := client.History(PhaseBuilder)
	require.Len(t, h, 4) // user, assistant, user, assistant
	assert.Equal(t, "user", h[0].Role)
	assert.Equal(t, "write main.go", h[0].Content)
	assert.Equal(t, "write utils.go", h[2].Content)
}

func TestResetHistoryClearsOnePhaseOnly(t *testing.T) {
	client, _, _ := newTestClient(t, nil)
	ctx := context.Background()

	_, err := client.Scout(ctx, "scout prompt", CallOpts{})
	require.NoError(t, err)
	_, err = client.Architect(ctx, "architect prompt", CallOpts{})
	require.NoError(t, err)

	client.ResetHistory(PhaseScout)
	assert.Empty(t, client.History(PhaseScout))
	assert.NotEmpty(t, client.History(PhaseArchitect))
}

func TestResetHistoryEmptyPhaseClearsEverything(t *testing.T) {
	client, _, _ := newTestClient(t, nil)
	ctx := context.Background()

	_, _ = client.Scout(ctx, "scout prompt", CallOpts{})
	_, _ = client.Architect(ctx, "architect prompt", CallOpts{})

	client.ResetHistory("")
	assert.Empty(t, client.History(PhaseScout))
	assert.Empty(t, client.History(PhaseArchitect))
}

// Routing overrides the model for architect-phase calls past the
// configured threshold, without mutating the base PhaseSetting.
func TestRoutingOverridesModelForComplexPhase(t *testing.T) {
	r := router.New(router.Config{
		DefaultModel:        "default-model",
		ComplexModel:        "complex-model",
		ComplexityThreshold: 3,
		Enabled:             true,
	})
	client, p, _ := newTestClient(t, r)
	ctx := context.Background()

	resp, err := client.Architect(ctx, "design the system architecture", CallOpts{WorkflowComplexity: "Complex"})
	require.NoError(t, err)
	assert.Equal(t, "complex-model", resp.Model)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls))

	// base architect setting must remain unmutated for subsequent calls.
	assert.Equal(t, "default-model", client.settings.Architect.Model)
}

// Per-task builder overrides win outright over both the base setting and
// routing (spec §4.2 step 4).
func TestPerTaskOverrideWinsOverRouting(t *testing.T) {
	reg := provider.NewRegistry()
	p := &countingProvider{name: "stub"}
	reg.Register(p)
	c, err := cache.New(t.TempDir(), 0)
	require.NoError(t, err)

	r := router.New(router.Config{DefaultModel: "default-model", ComplexModel: "complex-model", ComplexityThreshold: 100, Enabled: true})
	settings := Settings{
		Scout:     PhaseSetting{Provider: "stub"},
		Architect: PhaseSetting{Provider: "stub"},
		Builder:   PhaseSetting{Provider: "stub", Model: "default-model"},
	}
	overrides := map[int]config.PhaseModel{2: {Provider: "stub", Model: "override-model"}}
	client, err := New(reg, c, r, nil, settings, overrides, nil)
	require.NoError(t, err)

	resp, err := client.Builder(context.Background(), "implement task 2", CallOpts{TaskNum: 2})
	require.NoError(t, err)
	assert.Equal(t, "override-model", resp.Model)

	// task 1 has no override configured, falls back to the base/default model.
	resp, err = client.Builder(context.Background(), "implement task 1", CallOpts{TaskNum: 1})
	require.NoError(t, err)
	assert.Equal(t, "default-model", resp.Model)
}

// Cache key mutation: different histories for the same (model, prompt)
// must not collide (spec invariant 1).
func TestCacheMissOnDifferentHistory(t *testing.T) {
	client, p, _ := newTestClient(t, nil)
	ctx := context.Background()

	_, err := client.Builder(ctx, "same prompt", CallOpts{})
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&p.calls))

	// A second call with the same prompt but different prior history (this
	// client's builder history now has one exchange in it) must miss.
	_, err = client.Builder(ctx, "same prompt", CallOpts{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&p.calls))
}
