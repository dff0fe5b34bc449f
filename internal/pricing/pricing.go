// Package pricing tracks token costs per (phase, provider, model) and
// exposes cost estimation for the `estimate` CLI verb's contract
// (SPEC_FULL §D.2, ported from ace/cost_estimator.py). The pricing database
// itself is out of scope per spec §1 ("pricing database ... specified only
// as the interfaces the core consumes"); here that interface is
// provider.Provider.FallbackPricing.
package pricing

import (
	"sync"

	"foundry.dev/core/internal/provider"
)

// Record is one recorded LLM call's cost attribution.
type Record struct {
	Phase            string
	Provider         string
	Model            string
	InputTokens      int
	OutputTokens     int
	EstimatedCostUSD float64
}

// Tracker accumulates cost records for a session. Cache hits still count as
// usage for these metrics (spec §9's open question, resolved in DESIGN.md).
type Tracker struct {
	registry *provider.Registry

	mu      sync.Mutex
	records []Record
}

// New builds a Tracker that looks up fallback pricing from registry.
func New(registry *provider.Registry) *Tracker {
	return &Tracker{registry: registry}
}

// Record attributes token usage to (phase, provider, model) and appends a
// cost record using the provider's fallback pricing table.
func (t *Tracker) Record(phase, providerName, model string, inputTokens, outputTokens int) {
	cost := t.EstimateCost(providerName, model, inputTokens, outputTokens)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, Record{
		Phase: phase, Provider: providerName, Model: model,
		InputTokens: inputTokens, OutputTokens: outputTokens, EstimatedCostUSD: cost,
	})
}

// EstimateCost composes a provider's ModelPricing with a token estimate,
// returning 0 when no pricing is known for the (provider, model) pair.
func (t *Tracker) EstimateCost(providerName, model string, inputTokens, outputTokens int) float64 {
	if t.registry == nil {
		return 0
	}
	p, ok := t.registry.Get(providerName)
	if !ok {
		return 0
	}
	table := p.FallbackPricing()
	mp, ok := table[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000*mp.InputCostPer1M + float64(outputTokens)/1_000_000*mp.OutputCostPer1M
}

// Totals summarizes all recorded usage.
type Totals struct {
	InputTokens      int
	OutputTokens     int
	EstimatedCostUSD float64
	CallCount        int
}

// Totals aggregates every recorded call.
func (t *Tracker) Totals() Totals {
	t.mu.Lock()
	defer t.mu.Unlock()

	var totals Totals
	for _, r := range t.records {
		totals.InputTokens += r.InputTokens
		totals.OutputTokens += r.OutputTokens
		totals.EstimatedCostUSD += r.EstimatedCostUSD
		totals.CallCount++
	}
	return totals
}

// Records returns a copy of every recorded call. The manifest.json
// sessions[].metrics token total is computed from Totals, not from this.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}
