package contextmgr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// preservedSections are the categories the compaction summary is required to
// preserve (spec §4.6).
var preservedSections = []string{
	"architecture decisions", "patterns", "current task context",
	"critical errors", "implementation approaches", "progress",
}

// CallFunc is the narrow shape of an LLM call the compactor needs: a single
// prompt in, text out. internal/llmclient.Client.Architect (or any phase
// entry point) satisfies this once its return value is projected down.
type CallFunc func(ctx context.Context, prompt string) (string, error)

// DefaultSummaryBudget bounds the compactor's output, per spec §4.6 (4,000
// tokens). NewSmartCompactor always uses this value; the budget field is
// unexported and has no setter.
const DefaultSummaryBudget = 4000

// SmartCompactor asks an LLM to summarize compactable content under a bounded
// token budget, preserving critical items untouched (spec §4.6).
type SmartCompactor struct {
	call          CallFunc
	budgetTokens  int
	summaryDir    string
	sessionID     string
}

// NewSmartCompactor builds a Compactor that calls call to produce summaries.
// summaryDir, when non-empty, receives a human-readable summary file per
// compaction (spec §4.6: "writes a human-readable summary file to disk").
func NewSmartCompactor(call CallFunc, sessionID, summaryDir string) *SmartCompactor {
	return &SmartCompactor{call: call, budgetTokens: DefaultSummaryBudget, summaryDir: summaryDir, sessionID: sessionID}
}

// Compact partitions items into critical and compactable, summarizes the
// compactable subset via the LLM, and returns the summary item concatenated
// with every critical item untouched (spec §4.6).
func (c *SmartCompactor) Compact(items []ContentItem, metrics Metrics) (CompactResult, error) {
	var critical, compactable []ContentItem
	for _, it := range items {
		if it.IsCritical() {
			critical = append(critical, it)
		} else {
			compactable = append(compactable, it)
		}
	}

	if len(compactable) == 0 {
		return CompactResult{RetainedItems: critical}, nil
	}

	prompt := buildSummaryPrompt(compactable, metrics, c.budgetTokens)

	summary := ""
	if c.call != nil {
		out, err := c.call(context.Background(), prompt)
		if err != nil {
			return CompactResult{}, fmt.Errorf("contextmgr: compaction LLM call failed: %w", err)
		}
		summary = out
	}

	summaryItem := ContentItem{
		Role:            "assistant",
		Content:         summary,
		ContentType:     TypeSummary,
		ImportanceScore: 0.95,
		TokenEstimate:   estimateTokens(summary),
		Timestamp:       time.Now(),
	}

	retained := append([]ContentItem{summaryItem}, critical...)

	if c.summaryDir != "" {
		_ = c.writeSummaryFile(summary)
	}

	return CompactResult{
		Summary:         summary,
		RetainedItems:   retained,
		EstimatedTokens: summaryItem.TokenEstimate,
	}, nil
}

// buildSummaryPrompt renders the compactable transcript and asks for a
// structured summary covering every preserved section (spec §4.6).
func buildSummaryPrompt(items []ContentItem, metrics Metrics, budgetTokens int) string {
	var b strings.Builder
	b.WriteString("Summarize the following conversation history into a compact brief that preserves:\n")
	for _, section := range preservedSections {
		b.WriteString("- " + section + "\n")
	}
	fmt.Fprintf(&b, "\nKeep the summary under %d tokens. Current usage: %d tokens (%.1f%% of window).\n\n", budgetTokens, metrics.TotalTokens, metrics.ContextPercentage)
	b.WriteString("--- CONVERSATION ---\n")
	for _, it := range items {
		fmt.Fprintf(&b, "[%s/%s] %s\n", it.Role, it.ContentType, it.Content)
	}
	return b.String()
}

func (c *SmartCompactor) writeSummaryFile(summary string) error {
	if err := os.MkdirAll(c.summaryDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("summary_%s_%d.md", c.sessionID, time.Now().UnixNano())
	return os.WriteFile(filepath.Join(c.summaryDir, name), []byte(summary), 0o644)
}

// estimateTokens is a rough chars/4 estimate, matching the teacher's and the
// original's token-estimation shortcut when no tokenizer is wired in.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
