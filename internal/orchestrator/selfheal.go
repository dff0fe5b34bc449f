package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"foundry.dev/core/internal/coordinator"
	"foundry.dev/core/internal/extractor"
	"foundry.dev/core/internal/llmclient"
	"foundry.dev/core/internal/validate"
)

// runSelfHeal drives the validator pipeline + LLM judge loop (spec §4.12),
// wiring validate.FixTask into the dependency-aware builder coordinator
// through a fresh Runner that calls the builder phase and runs the
// extractor exactly like the main builder loop, just without history reset
// bookkeeping across a whole TASKS.md (each fix task is already
// self-contained).
func (o *Orchestrator) runSelfHeal(ctx context.Context, opts Options) validate.HealResult {
	fix := func(tasks []validate.FixTask) error {
		ctasks := make([]coordinator.Task, len(tasks))
		for i, t := range tasks {
			ctasks[i] = coordinator.Task{
				ID:        fmt.Sprintf("fix-%s-%d", t.Criterion, i),
				Type:      "builder",
				Objective: t.Objective,
				Priority:  t.Priority,
			}
		}

		runner := o.fixRunner(ctx)
		result := o.deps.BuilderCoord.Run(ctasks, runner)
		if !result.Success {
			return fmt.Errorf("orchestrator: self-heal fix tasks failed (%d results)", len(result.Results))
		}
		return nil
	}

	result, err := validate.SelfHeal(o.deps.ProjectDir, o.deps.Validators, o.deps.Judge, fix, opts.MaxHealAttempts)
	if err != nil {
		slog.WarnContext(ctx, "self-heal loop returned an error, treating as failure", "error", err)
		result.Success = false
	}
	return result
}

// fixRunner adapts one coordinator.Task (a synthesized fix objective) into
// a single builder-phase call plus extraction, mirroring runBuilder's
// per-task pipeline but self-contained (no cross-task footer — a fix task
// is independent by construction).
func (o *Orchestrator) fixRunner(ctx context.Context) coordinator.Runner {
	return func(task coordinator.Task) coordinator.Result {
		o.deps.Client.ResetHistory(llmclient.PhaseBuilder)

		resp, err := o.deps.Client.Builder(ctx, task.Objective, llmclient.CallOpts{Priority: task.Priority})
		if err != nil {
			return coordinator.Result{TaskID: task.ID, TaskType: task.Type, Success: false, Error: err.Error()}
		}
		o.track(resp, "builder")

		extraction := extractor.Extract(resp.Content, extractor.Options{ProjectName: o.deps.ProjectName})
		written, err := extractor.WriteAll(o.deps.ProjectDir, extraction.Files)
		if err != nil {
			return coordinator.Result{TaskID: task.ID, TaskType: task.Type, Success: false, Error: err.Error()}
		}

		paths := make([]string, len(written))
		for i, f := range written {
			paths[i] = f.Path
		}
		return coordinator.Result{
			TaskID: task.ID, TaskType: task.Type,
			Success: len(written) > 0, FilesWritten: paths,
			TokenUsage: resp.TotalTokens(),
		}
	}
}
