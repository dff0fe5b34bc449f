package orchestrator

import (
	"time"

	"foundry.dev/core/internal/blueprint"
)

// sessionEntry builds the manifest.json row recorded at the end of a Run,
// including the structured per-session metrics an external analysis tool
// can read (SPEC_FULL §D.5): token totals from the pricing tracker, the
// wall-clock span of each phase, and the cache hit rate, if those
// collaborators were wired in.
func sessionEntry(deps Dependencies, opts Options, result Result, status, historyPath string, phaseDurations map[string]float64) blueprint.SessionEntry {
	entry := blueprint.SessionEntry{
		Timestamp:   time.Now(),
		Type:        opts.Mode,
		Task:        opts.Task,
		Status:      status,
		Completed:   status == StatusSuccess,
		HistoryPath: historyPath,
	}

	var totalTokens int
	if deps.Pricing != nil {
		totals := deps.Pricing.Totals()
		totalTokens = totals.InputTokens + totals.OutputTokens
	}

	var cacheHitRate float64
	if deps.Cache != nil {
		cacheHitRate = deps.Cache.Stats().HitRate()
	}

	entry.Metrics = &blueprint.SessionMetrics{
		TotalTokens:    totalTokens,
		PhaseDurations: phaseDurations,
		CacheHitRate:   cacheHitRate,
	}
	return entry
}
