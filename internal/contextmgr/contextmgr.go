// Package contextmgr implements the Context Manager (spec §4.5): per-session
// token-usage tracking, content prioritization, and compaction triggers that
// keep a session under its model window. The scoring and thresholds are
// ported from the original ace/context_manager.py, following the teacher's
// convention of a small, dependency-free tracker type with an explicit
// Checkpoint/Restore pair (mirrors common/logger's context-carried Fields
// in spirit: state travels explicitly, not through package globals).
package contextmgr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Content types recognized by the importance scorer (spec §3 ContentItem).
const (
	TypeDecision = "decision"
	TypePattern  = "pattern"
	TypeError    = "error"
	TypeCode     = "code"
	TypeSummary  = "summary"
	TypeGeneral  = "general"
)

// CriticalThreshold is the importance score above which an item must
// survive compaction (spec §3).
const CriticalThreshold = 0.85

// baseScores gives each content_type its starting importance, ported
// verbatim from ace/context_manager.py's `_calculate_importance` type_scores
// table. A content_type absent from this table (e.g. "summary", which the
// compactor sets directly to 0.95 instead of routing through score()) falls
// back to the same 0.5 default the original's `type_scores.get(content_type,
// 0.5)` uses.
var baseScores = map[string]float64{
	TypeDecision: 0.9,
	TypePattern:  0.8,
	TypeError:    0.85,
	TypeCode:     0.7,
	TypeGeneral:  0.5,
}

const defaultBaseScore = 0.5

// importanceKeywords bump an item's score when present in its content, one
// flat +0.05 per distinct match, ported verbatim from
// ace/context_manager.py's `_calculate_importance` important_keywords list.
var importanceKeywords = []string{
	"architecture", "design", "decision", "critical", "important",
	"error", "bug", "fix", "pattern", "strategy", "approach",
}

const keywordBoost = 0.05

// lengthPenaltyDivisor and lengthPenaltyCap reproduce
// `min(0.1, len(text) / 10000 * 0.1)` from ace/context_manager.py: a
// continuous penalty over the combined prompt+response text, capped at 0.1.
const (
	lengthPenaltyDivisor = 10000.0
	lengthPenaltyScale   = 0.1
	lengthPenaltyCap     = 0.1
)

// ContentItem is one tracked piece of conversation content (spec §3).
type ContentItem struct {
	Content         string    `json:"content"`
	Role            string    `json:"role"`
	ImportanceScore float64   `json:"importance_score"`
	TokenEstimate   int       `json:"token_estimate"`
	Timestamp       time.Time `json:"timestamp"`
	ContentType     string    `json:"content_type"`
	// PatternHint lets an external pattern library attach a hint to tracked
	// content; the core never stores or mines patterns itself
	// (SPEC_FULL §D.3).
	PatternHint string `json:"pattern_hint,omitempty"`
}

// IsCritical reports whether the item must survive compaction.
func (c ContentItem) IsCritical() bool { return c.ImportanceScore >= CriticalThreshold }

// Metrics is a point-in-time snapshot of session token usage (spec §3
// ContextMetrics).
type Metrics struct {
	TotalTokens          int       `json:"total_tokens"`
	ContextPercentage    float64   `json:"context_percentage"`
	MessageCount         int       `json:"message_count"`
	CompactionCount      int       `json:"compaction_count"`
	LastCompactionTokens int       `json:"last_compaction_tokens"`
	Timestamp            time.Time `json:"timestamp"`
}

// Thresholds configures when compaction should trigger and its target.
type Thresholds struct {
	CompactionPercent float64 // default 40
	CriticalPercent   float64 // default 70
	TargetPercent     float64 // default 25
}

// DefaultThresholds matches spec §4.5.
var DefaultThresholds = Thresholds{CompactionPercent: 40, CriticalPercent: 70, TargetPercent: 25}

// Compactor produces an intelligent, LLM-summarized replacement for
// compactable items (spec §4.6). The fallback priority-based strategy is
// used when one isn't supplied.
type Compactor interface {
	Compact(items []ContentItem, metrics Metrics) (CompactResult, error)
}

// CompactResult is what a Compactor returns.
type CompactResult struct {
	Summary        string
	RetainedItems  []ContentItem
	EstimatedTokens int
}

// Manager tracks one session's context usage (spec §4.5).
type Manager struct {
	sessionID    string
	window       int
	thresholds   Thresholds
	checkpointAt int // auto-checkpoint every N messages

	checkpointDir string

	mu               sync.Mutex
	items            []ContentItem
	totalTokens      int
	messageCount     int
	compactionCount  int
	lastCompactionTk int
	metricsHistory   []Metrics
}

// New builds a Manager for sessionID with model window W tokens.
// checkpointDir may be empty to disable checkpointing.
func New(sessionID string, window int, thresholds Thresholds, checkpointDir string) *Manager {
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds
	}
	return &Manager{
		sessionID:     sessionID,
		window:        window,
		thresholds:    thresholds,
		checkpointAt:  5,
		checkpointDir: checkpointDir,
	}
}

// Track records one LLM interaction (prompt + response) as two ContentItems,
// accumulates token totals, and auto-checkpoints every checkpointAt messages
// (spec §4.5). Returns the metrics snapshot after recording.
func (m *Manager) Track(prompt, response string, inTokens, outTokens int, contentType string) Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	importance := score(contentType, prompt, response)
	m.items = append(m.items,
		ContentItem{Content: prompt, Role: "user", ContentType: contentType, TokenEstimate: inTokens, Timestamp: now, ImportanceScore: importance},
		ContentItem{Content: response, Role: "assistant", ContentType: contentType, TokenEstimate: outTokens, Timestamp: now, ImportanceScore: importance},
	)
	m.totalTokens += inTokens + outTokens
	m.messageCount++

	metrics := m.metricsLocked()
	m.metricsHistory = append(m.metricsHistory, metrics)

	if m.checkpointAt > 0 && m.messageCount%m.checkpointAt == 0 {
		_ = m.checkpointLocked()
	}

	return metrics
}

// score computes one interaction's importance_score: base by content_type,
// plus one flat boost per distinct keyword match, minus a continuous length
// penalty, clamped to [0, 1] — ported verbatim from
// ace/context_manager.py's `_calculate_importance`, which scores the
// prompt+response pair once rather than the user/assistant items
// separately (both ContentItems from one interaction share this score).
func score(contentType, prompt, response string) float64 {
	base, ok := baseScores[contentType]
	if !ok {
		base = defaultBaseScore
	}

	text := strings.ToLower(prompt + " " + response)
	var boost float64
	for _, kw := range importanceKeywords {
		if strings.Contains(text, kw) {
			boost += keywordBoost
		}
	}

	lengthPenalty := float64(len(text)) / lengthPenaltyDivisor * lengthPenaltyScale
	if lengthPenalty > lengthPenaltyCap {
		lengthPenalty = lengthPenaltyCap
	}

	s := base + boost - lengthPenalty
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return s
}

// Metrics returns the current metrics snapshot.
func (m *Manager) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metricsLocked()
}

func (m *Manager) metricsLocked() Metrics {
	pct := 0.0
	if m.window > 0 {
		pct = float64(m.totalTokens) / float64(m.window) * 100
	}
	return Metrics{
		TotalTokens:          m.totalTokens,
		ContextPercentage:    pct,
		MessageCount:         m.messageCount,
		CompactionCount:      m.compactionCount,
		LastCompactionTokens: m.lastCompactionTk,
		Timestamp:            time.Now(),
	}
}

// ShouldCompact reports whether the session has crossed the compaction
// threshold, and a human-readable reason distinguishing "critical" from
// ordinary compaction triggers (spec §4.5).
func (m *Manager) ShouldCompact() (bool, string) {
	metrics := m.Metrics()
	switch {
	case metrics.ContextPercentage >= m.thresholds.CriticalPercent:
		return true, fmt.Sprintf("critical: context at %.1f%% of window", metrics.ContextPercentage)
	case metrics.ContextPercentage >= m.thresholds.CompactionPercent:
		return true, fmt.Sprintf("context at %.1f%% of window, above compaction threshold", metrics.ContextPercentage)
	default:
		return false, ""
	}
}

// Compact replaces compactable items with a summary, preserving every
// critical item (spec invariant 6). With no compactor supplied, falls back
// to the priority-based strategy: keep items by descending importance_score
// until the target token budget is reached, always keeping critical items.
func (m *Manager) Compact(compactor Compactor) error {
	m.mu.Lock()
	items := append([]ContentItem{}, m.items...)
	before := m.totalTokens
	metrics := m.metricsLocked()
	m.mu.Unlock()

	target := int(float64(m.window) * m.thresholds.TargetPercent / 100)

	var retained []ContentItem
	var summaryTokens int
	if compactor != nil {
		result, err := compactor.Compact(items, metrics)
		if err != nil {
			return fmt.Errorf("contextmgr: intelligent compaction failed: %w", err)
		}
		retained = ensureCritical(items, result.RetainedItems)
		summaryTokens = result.EstimatedTokens
	} else {
		retained = fallbackCompact(items, target)
		for _, it := range retained {
			summaryTokens += it.TokenEstimate
		}
	}

	after := tokenSum(retained)
	if after > before {
		after = before // compaction must never increase the total (spec invariant 6)
	}

	m.mu.Lock()
	m.items = retained
	m.totalTokens = after
	m.compactionCount++
	m.lastCompactionTk = before - after
	m.mu.Unlock()

	if m.checkpointDir != "" {
		_ = writeSummaryArtifact(m.checkpointDir, m.sessionID, summaryTokens, before, after)
		_ = m.Checkpoint()
	}
	return nil
}

// ensureCritical guarantees every pre-compaction critical item is present in
// retained, appending any that a Compactor implementation dropped.
func ensureCritical(before, retained []ContentItem) []ContentItem {
	present := make(map[string]bool, len(retained))
	for _, it := range retained {
		present[itemKey(it)] = true
	}
	out := append([]ContentItem{}, retained...)
	for _, it := range before {
		if it.IsCritical() && !present[itemKey(it)] {
			out = append(out, it)
		}
	}
	return out
}

func itemKey(it ContentItem) string {
	return it.Role + "|" + it.ContentType + "|" + it.Timestamp.String() + "|" + it.Content
}

// fallbackCompact sorts by descending importance and greedily keeps items
// until target tokens is reached; critical items are always kept even past
// the target (spec §4.5).
func fallbackCompact(items []ContentItem, target int) []ContentItem {
	sorted := append([]ContentItem{}, items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ImportanceScore > sorted[j].ImportanceScore
	})

	var kept []ContentItem
	var sum int
	for _, it := range sorted {
		if it.IsCritical() {
			kept = append(kept, it)
			sum += it.TokenEstimate
			continue
		}
		if sum >= target {
			continue
		}
		kept = append(kept, it)
		sum += it.TokenEstimate
	}
	return kept
}

func tokenSum(items []ContentItem) int {
	var sum int
	for _, it := range items {
		sum += it.TokenEstimate
	}
	return sum
}

// snapshot is the on-disk checkpoint format.
type snapshot struct {
	SessionID        string        `json:"session_id"`
	Items            []ContentItem `json:"items"`
	TotalTokens      int           `json:"total_tokens"`
	MessageCount     int           `json:"message_count"`
	CompactionCount  int           `json:"compaction_count"`
	LastCompactionTk int           `json:"last_compaction_tokens"`
	MetricsHistory   []Metrics     `json:"metrics_history"`
	Timestamp        time.Time     `json:"timestamp"`
}

// Checkpoint writes a JSON snapshot plus a latest.json pointer under
// checkpointDir/context/{sessionID}/ (spec §4.5, §6).
func (m *Manager) Checkpoint() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkpointLocked()
}

func (m *Manager) checkpointLocked() error {
	if m.checkpointDir == "" {
		return nil
	}
	dir := filepath.Join(m.checkpointDir, "context", m.sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("contextmgr: creating checkpoint dir: %w", err)
	}

	snap := snapshot{
		SessionID:        m.sessionID,
		Items:            m.items,
		TotalTokens:      m.totalTokens,
		MessageCount:     m.messageCount,
		CompactionCount:  m.compactionCount,
		LastCompactionTk: m.lastCompactionTk,
		MetricsHistory:   m.metricsHistory,
		Timestamp:        time.Now(),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("contextmgr: encoding checkpoint: %w", err)
	}

	name := fmt.Sprintf("context_%d.json", time.Now().UnixNano())
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("contextmgr: writing checkpoint: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "latest.json"), data, 0o644)
}

// Restore replaces in-memory state with the snapshot at path, or the
// session's latest.json when path is empty. Returns false if the file is
// missing (spec §4.5: "missing file returns false").
func (m *Manager) Restore(path string) bool {
	if path == "" {
		path = filepath.Join(m.checkpointDir, "context", m.sessionID, "latest.json")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = snap.Items
	m.totalTokens = snap.TotalTokens
	m.messageCount = snap.MessageCount
	m.compactionCount = snap.CompactionCount
	m.lastCompactionTk = snap.LastCompactionTk
	m.metricsHistory = snap.MetricsHistory
	return true
}

func writeSummaryArtifact(checkpointDir, sessionID string, summaryTokens, before, after int) error {
	dir := filepath.Join(checkpointDir, "context", sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	body := fmt.Sprintf(
		"# Compaction Summary\n\nSession: %s\nBefore: %d tokens\nAfter: %d tokens\nSaved: %d tokens\nSummary tokens: %d\n",
		sessionID, before, after, before-after, summaryTokens,
	)
	name := fmt.Sprintf("compaction_%d.md", time.Now().UnixNano())
	return os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644)
}
