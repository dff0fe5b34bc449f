package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"foundry.dev/core/internal/extractor"
	"foundry.dev/core/internal/ids"
	"foundry.dev/core/internal/llmclient"
	"foundry.dev/core/internal/logging"
	"foundry.dev/core/internal/provider"
)

// commitPrefixes maps a run mode to the conventional-commit prefix used
// when committing a builder task's output (spec §4.7 step 3).
var commitPrefixes = map[string]string{
	ModeNew:     "feat",
	ModeFix:     "fix",
	ModeEnhance: "feat",
}

// Orchestrator drives Scout → Architect → Builder for one session
// (spec §4.7).
type Orchestrator struct {
	deps Dependencies
}

// New builds an Orchestrator over deps.
func New(deps Dependencies) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Run executes one full session per opts (spec §4.7). It never panics: any
// unexpected error is captured into Result.Err with Status StatusError.
func (o *Orchestrator) Run(ctx context.Context, opts Options) Result {
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = ids.SessionID(o.deps.ProjectName)
	}
	if opts.MaxHealAttempts == 0 {
		opts.MaxHealAttempts = 3
	}

	ctx = logging.With(ctx, logging.Fields{
		SessionID: logging.Ptr(sessionID),
		Mode:      logging.Ptr(opts.Mode),
		Component: "foundry.orchestrator",
	})

	result := Result{SessionID: sessionID}
	phaseDurations := map[string]float64{}

	scoutStart := time.Now()
	research, err := o.runScout(ctx, sessionID, opts)
	phaseDurations[PhaseScout] = time.Since(scoutStart).Seconds()
	if err != nil {
		return o.fail(result, err)
	}
	result.Research = research

	if proceed := o.gate(opts, PhaseScout, research); !proceed {
		result.Status = StatusAborted
		o.recordSession(opts, result, phaseDurations, false)
		return result
	}

	architectStart := time.Now()
	sections, err := o.runArchitect(ctx, sessionID, opts, research)
	phaseDurations[PhaseArchitect] = time.Since(architectStart).Seconds()
	if err != nil {
		return o.fail(result, err)
	}
	result.Spec, result.Plan, result.Tasks = sections.Spec, sections.Plan, sections.Tasks
	if sections.Warning != "" {
		result.ParseWarnings = append(result.ParseWarnings, sections.Warning)
		slog.WarnContext(ctx, "architect output parsing fell back", "warning", sections.Warning)
	}

	if proceed := o.gate(opts, PhaseArchitect, sections.Spec); !proceed {
		result.Status = StatusAborted
		o.recordSession(opts, result, phaseDurations, false)
		return result
	}

	tasks := parseTasks(sections.Tasks)
	if len(opts.ResumeTasks) > 0 {
		filtered, warnings := filterTaskIndices(tasks, opts.ResumeTasks)
		tasks = filtered
		result.ParseWarnings = append(result.ParseWarnings, warnings...)
	}

	builderStart := time.Now()
	builderResults := o.runBuilder(ctx, sessionID, opts, tasks)
	phaseDurations[PhaseBuilder] = time.Since(builderStart).Seconds()
	result.BuilderResults = builderResults

	if o.deps.Judge != nil {
		healStart := time.Now()
		heal := o.runSelfHeal(ctx, opts)
		phaseDurations[PhaseValidation] = time.Since(healStart).Seconds()
		result.HealResult = &heal
		if !heal.Success {
			result.Status = StatusIncomplete
			o.recordSession(opts, result, phaseDurations, false)
			return result
		}
	}

	result.Status = StatusSuccess
	o.recordSession(opts, result, phaseDurations, true)
	o.checkpoint(sessionID, PhaseComplete, map[string]any{"status": result.Status})
	return result
}

func (o *Orchestrator) fail(result Result, err error) Result {
	result.Status = StatusError
	result.Err = err
	return result
}

// gate consults Approve after Scout/Architect unless running autonomously
// or unattended (spec §4.7 "Approval gates", SPEC_FULL §D.4).
func (o *Orchestrator) gate(opts Options, phase, content string) bool {
	if opts.Autonomous || opts.Unattended || opts.Approve == nil {
		return true
	}
	return opts.Approve(phase, content)
}

func (o *Orchestrator) checkpoint(sessionID, phase string, data any) {
	if o.deps.Checkpoints == nil {
		return
	}
	if err := o.deps.Checkpoints.Save(sessionID, phase, data); err != nil {
		slog.Warn("checkpoint save failed, continuing", "phase", phase, "error", err)
	}
}

// runScout composes the scout prompt (prepending canonical blueprints for
// fix/enhance when populated), calls the phase, and persists the research
// artifact (spec §4.7 step 1).
func (o *Orchestrator) runScout(ctx context.Context, sessionID string, opts Options) (string, error) {
	prompt := o.scoutPrompt(opts)

	resp, err := o.deps.Client.Scout(ctx, prompt, llmclient.CallOpts{})
	if err != nil {
		return "", fmt.Errorf("orchestrator: scout call failed: %w", err)
	}
	o.track(resp, "scout")

	if o.deps.Blueprint != nil {
		if err := o.deps.Blueprint.WriteResearch(resp.Content); err != nil {
			slog.WarnContext(ctx, "writing RESEARCH.md failed, continuing", "error", err)
		}
	}
	o.checkpoint(sessionID, PhaseScout, map[string]string{"research": resp.Content})
	return resp.Content, nil
}

func (o *Orchestrator) scoutPrompt(opts Options) string {
	var b strings.Builder
	if (opts.Mode == ModeFix || opts.Mode == ModeEnhance) && o.deps.Blueprint != nil {
		if spec := o.deps.Blueprint.ReadSpec(); spec != "" {
			b.WriteString("## Prior blueprint context\n\n")
			b.WriteString("### SPEC.md\n" + spec + "\n\n")
			if plan := o.deps.Blueprint.ReadPlan(); plan != "" {
				b.WriteString("### PLAN.md\n" + plan + "\n\n")
			}
			if research := o.deps.Blueprint.ReadResearch(); research != "" {
				b.WriteString("### RESEARCH.md\n" + research + "\n\n")
			}
		}
	}
	fmt.Fprintf(&b, "Mode: %s\n\nTask: %s\n", opts.Mode, opts.Task)
	return b.String()
}

// runArchitect calls the phase with the research output and parses its
// response into the three blueprint files (spec §4.7 step 2).
func (o *Orchestrator) runArchitect(ctx context.Context, sessionID string, opts Options, research string) (architectSections, error) {
	prompt := fmt.Sprintf("Task: %s\n\nResearch findings:\n%s\n\nProduce a Specification, an Implementation Plan, and a Task Breakdown.", opts.Task, research)

	resp, err := o.deps.Client.Architect(ctx, prompt, llmclient.CallOpts{})
	if err != nil {
		return architectSections{}, fmt.Errorf("orchestrator: architect call failed: %w", err)
	}
	o.track(resp, "architect")

	sections := parseArchitectOutput(resp.Content)

	if o.deps.Blueprint != nil {
		if err := o.deps.Blueprint.WriteSpec(sections.Spec); err != nil {
			slog.WarnContext(ctx, "writing SPEC.md failed, continuing", "error", err)
		}
		if err := o.deps.Blueprint.WritePlan(sections.Plan); err != nil {
			slog.WarnContext(ctx, "writing PLAN.md failed, continuing", "error", err)
		}
		if err := o.deps.Blueprint.WriteTasks(sections.Tasks); err != nil {
			slog.WarnContext(ctx, "writing TASKS.md failed, continuing", "error", err)
		}
	}
	o.checkpoint(sessionID, PhaseArchitect, map[string]string{"spec": sections.Spec, "plan": sections.Plan, "tasks": sections.Tasks})
	return sections, nil
}

// runBuilder runs each parsed task through the builder phase in order,
// resetting history per task and tracking previously created paths into a
// footer, per spec §4.7 step 3.
func (o *Orchestrator) runBuilder(ctx context.Context, sessionID string, opts Options, tasks []TaskSpec) []BuilderTaskResult {
	var results []BuilderTaskResult
	var createdPaths []string

	for _, task := range tasks {
		o.deps.Client.ResetHistory(llmclient.PhaseBuilder)

		prompt := builderPrompt(task, createdPaths)
		resp, err := o.deps.Client.Builder(ctx, prompt, llmclient.CallOpts{TaskNum: task.Index, Priority: 5})

		res := BuilderTaskResult{Index: task.Index, Title: task.Title, Files: task.Files}
		if err != nil {
			res.Success = false
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		o.track(resp, "builder")

		extraction := extractor.Extract(resp.Content, extractor.Options{ProjectName: o.deps.ProjectName})
		res.Warnings = extraction.Warnings

		written, err := extractor.WriteAll(o.deps.ProjectDir, extraction.Files)
		if err != nil {
			res.Error = err.Error()
		}

		taskID := fmt.Sprintf("task-%d", task.Index)
		for _, f := range written {
			res.FilesWritten = append(res.FilesWritten, f.Path)
			createdPaths = append(createdPaths, f.Path)
			if o.deps.BuildState != nil {
				if err := o.deps.BuildState.TrackFile(f.Path, taskID, nil); err != nil {
					slog.WarnContext(ctx, "build state tracking failed, continuing", "path", f.Path, "error", err)
				}
			}
		}
		res.Success = len(res.FilesWritten) > 0 && res.Error == ""

		if o.deps.GitCommit != nil && res.Success {
			prefix := commitPrefixes[opts.Mode]
			if prefix == "" {
				prefix = "chore"
			}
			msg := fmt.Sprintf("%s: %s", prefix, task.Title)
			if cErr := o.deps.GitCommit(msg); cErr != nil {
				slog.WarnContext(ctx, "git commit failed, continuing", "error", cErr) // spec §7: git failures never abort the build
			}
		}

		results = append(results, res)
	}

	if o.deps.BuildState != nil {
		if err := o.deps.BuildState.Save(); err != nil {
			slog.WarnContext(ctx, "saving build state failed, continuing", "error", err)
		}
	}
	o.checkpoint(sessionID, PhaseBuilder, map[string]int{"tasks_run": len(results)})
	return results
}

func builderPrompt(task TaskSpec, createdPaths []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %d: %s\n", task.Index, task.Title)
	if len(task.Files) > 0 {
		fmt.Fprintf(&b, "Expected files: %s\n", strings.Join(task.Files, ", "))
	}
	if task.Changes != "" {
		fmt.Fprintf(&b, "Changes: %s\n", task.Changes)
	}
	if len(createdPaths) > 0 {
		b.WriteString("\nPrevious tasks in this session already created these exact paths — reuse them, do not recreate:\n")
		for _, p := range createdPaths {
			b.WriteString("- " + p + "\n")
		}
	}
	return b.String()
}

func (o *Orchestrator) track(resp provider.ProviderResponse, contentType string) {
	if o.deps.ContextMgr == nil {
		return
	}
	o.deps.ContextMgr.Track("", resp.Content, resp.InputTokens, resp.OutputTokens, contentType)
}

func (o *Orchestrator) recordSession(opts Options, result Result, phaseDurations map[string]float64, completed bool) {
	if o.deps.Blueprint == nil {
		return
	}
	rel, err := o.deps.Blueprint.ArchiveSession(opts.Mode, result.SessionID)
	if err != nil {
		slog.Warn("archiving session failed, continuing", "error", err)
	}
	status := "incomplete"
	if completed {
		status = "success"
	}
	entry := sessionEntry(o.deps, opts, result, status, rel, phaseDurations)
	if err := o.deps.Blueprint.RecordSession(o.deps.ProjectName, entry); err != nil {
		slog.Warn("recording session in manifest failed, continuing", "error", err)
	}
}
