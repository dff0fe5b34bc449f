package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"foundry.dev/core/internal/coordinator"
	"foundry.dev/core/internal/llmclient"
)

// WorkflowPlan is the Lead Orchestrator's sole output (spec §3, §4.8). It
// performs no execution itself — the Scout/Builder coordinators consume the
// plan's task lists.
type WorkflowPlan struct {
	Complexity              string             `json:"complexity"` // Simple | Medium | Complex
	ScoutTasks              []coordinator.Task `json:"scout_tasks"`
	ArchitectStrategy       string             `json:"architect_strategy"`
	BuilderTasks            []coordinator.Task `json:"builder_tasks"`
	ValidationTasks         []string           `json:"validation_tasks"`
	ParallelizationStrategy string             `json:"parallelization_strategy"`
}

// planTask mirrors coordinator.Task's shape for JSON decoding without
// burdening the coordinator package with wire-format tags it has no other
// use for.
type planTask struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Objective    string   `json:"objective"`
	OutputFormat string   `json:"output_format"`
	Tools        []string `json:"tools"`
	Sources      []string `json:"sources"`
	Boundaries   []string `json:"boundaries"`
	Priority     int      `json:"priority"`
	Dependencies []string `json:"dependencies"`
}

type planDoc struct {
	Complexity              string     `json:"complexity"`
	ScoutTasks              []planTask `json:"scout_tasks"`
	ArchitectStrategy       string     `json:"architect_strategy"`
	BuilderTasks            []planTask `json:"builder_tasks"`
	ValidationTasks         []string   `json:"validation_tasks"`
	ParallelizationStrategy string     `json:"parallelization_strategy"`
}

func (t planTask) toTask() coordinator.Task {
	return coordinator.Task{
		ID: t.ID, Type: t.Type, Objective: t.Objective, OutputFormat: t.OutputFormat,
		Tools: t.Tools, Sources: t.Sources, Boundaries: t.Boundaries,
		Priority: t.Priority, Dependencies: t.Dependencies,
	}
}

var fencedCodeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// Plan asks the LLM to decompose userRequest into a WorkflowPlan (spec
// §4.8). The plan call rides the architect phase config — the same
// collaborator that otherwise produces PLAN.md in single-agent mode — since
// the spec defines no separate phase slot for multi-agent planning.
func (o *Orchestrator) Plan(ctx context.Context, userRequest, projectContext string) (WorkflowPlan, error) {
	prompt := fmt.Sprintf(
		"Produce a JSON workflow plan for the following request. Respond with only a JSON object "+
			"(optionally fenced) with keys: complexity (Simple|Medium|Complex), scout_tasks, "+
			"architect_strategy, builder_tasks, validation_tasks, parallelization_strategy. Each task in "+
			"scout_tasks/builder_tasks has keys: id, type, objective, output_format, tools, sources, "+
			"boundaries, priority, dependencies.\n\nUser request: %s\n\nProject context: %s\n",
		userRequest, projectContext)

	resp, err := o.deps.Client.Architect(ctx, prompt, llmclient.CallOpts{})
	if err != nil {
		return WorkflowPlan{}, fmt.Errorf("orchestrator: lead plan call failed: %w", err)
	}
	o.track(resp, "architect")

	return parseWorkflowPlan(resp.Content)
}

// parseWorkflowPlan extracts a JSON object from response, accepting a
// wrapping fenced code block (spec §4.8), and decodes it into a
// WorkflowPlan.
func parseWorkflowPlan(response string) (WorkflowPlan, error) {
	body := strings.TrimSpace(response)
	if m := fencedCodeBlockRe.FindStringSubmatch(response); m != nil {
		body = strings.TrimSpace(m[1])
	}

	var doc planDoc
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return WorkflowPlan{}, fmt.Errorf("orchestrator: workflow plan is not valid JSON: %w", err)
	}

	plan := WorkflowPlan{
		Complexity:              doc.Complexity,
		ArchitectStrategy:       doc.ArchitectStrategy,
		ValidationTasks:         doc.ValidationTasks,
		ParallelizationStrategy: doc.ParallelizationStrategy,
	}
	for _, t := range doc.ScoutTasks {
		plan.ScoutTasks = append(plan.ScoutTasks, t.toTask())
	}
	for _, t := range doc.BuilderTasks {
		plan.BuilderTasks = append(plan.BuilderTasks, t.toTask())
	}
	return plan, nil
}

// FindingsCompression is the structured result of compressing a batch of
// scout findings into a short summary (spec §4.8).
type FindingsCompression struct {
	Summary           string  `json:"summary"`
	Raw               string  `json:"raw"`
	Ratio             float64 `json:"ratio"`
	OriginalTokens    int     `json:"original_tokens"`
	CompressedTokens  int     `json:"compressed_tokens"`
}

const findingsSummaryTokenBudget = 2000

// CompressFindings concatenates a scout phase's subagent outputs and asks
// the LLM for a summary within the token budget (spec §4.8, "Findings
// compression").
func (o *Orchestrator) CompressFindings(ctx context.Context, results []coordinator.Result) (FindingsCompression, error) {
	var b strings.Builder
	for _, r := range results {
		if r.Findings == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n%s\n\n", r.TaskID, r.Findings)
	}
	raw := strings.TrimSpace(b.String())
	originalTokens := estimateTokens(raw)

	prompt := fmt.Sprintf(
		"Summarize the following scout findings in at most %d tokens, keeping concrete file paths, "+
			"decisions, and open questions:\n\n%s", findingsSummaryTokenBudget, raw)

	resp, err := o.deps.Client.Scout(ctx, prompt, llmclient.CallOpts{})
	if err != nil {
		return FindingsCompression{}, fmt.Errorf("orchestrator: findings compression call failed: %w", err)
	}
	o.track(resp, "summary")

	compressedTokens := estimateTokens(resp.Content)
	var ratio float64
	if originalTokens > 0 {
		ratio = float64(compressedTokens) / float64(originalTokens)
	}

	return FindingsCompression{
		Summary:          resp.Content,
		Raw:              raw,
		Ratio:            ratio,
		OriginalTokens:   originalTokens,
		CompressedTokens: compressedTokens,
	}, nil
}

// estimateTokens applies the same coarse chars/4 heuristic used elsewhere in
// this module (internal/contextmgr, internal/provider) in the absence of an
// exact tokenizer.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
