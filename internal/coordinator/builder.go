package coordinator

// BuildStateTracker is the narrow view of internal/buildstate.Tracker the
// incremental-mode coordinator needs, kept as an interface so this package
// doesn't import buildstate directly (avoids a dependency edge the module
// map doesn't call for).
type BuildStateTracker interface {
	GetChangedFiles() []string
	GetAffectedTasks(changed []string) []string
}

// BuilderCoordinator executes builder subagent tasks, choosing between the
// dependency-aware (DAG-leveled) and flat execution modes (spec §4.9).
type BuilderCoordinator struct {
	// MaxParallelOverride caps worker count per level/pool; 0 means "use
	// auto-scaling" (spec §4.9's auto-scaling rule).
	MaxParallelOverride int
}

// NewBuilderCoordinator builds a BuilderCoordinator with auto-scaling (no
// override).
func NewBuilderCoordinator() *BuilderCoordinator {
	return &BuilderCoordinator{}
}

// RunResult carries everything a builder run reports back to the
// orchestrator / self-heal loop.
type RunResult struct {
	Results []Result
	Levels  [][]Task // empty in flat mode
	Cyclic  []Task   // tasks that couldn't be leveled; also run as the final level
	Success bool
	// SkippedLevels records level indices that were never run because an
	// earlier level had a failure (spec §4.9 step 4: "fail-fast at the
	// level boundary").
	SkippedLevels []int
}

// Run dispatches to the dependency-aware path when any task declares a
// dependency, otherwise the flat path (spec §4.9).
func (c *BuilderCoordinator) Run(tasks []Task, run Runner) RunResult {
	if hasDependencies(tasks) {
		return c.runDependencyAware(tasks, run)
	}
	return c.runFlat(tasks, run)
}

func hasDependencies(tasks []Task) bool {
	for _, t := range tasks {
		if len(t.Dependencies) > 0 {
			return true
		}
	}
	return false
}

// runFlat submits every task to a single bounded pool; phase success iff any
// task succeeded (spec §4.9 "Flat").
func (c *BuilderCoordinator) runFlat(tasks []Task, run Runner) RunResult {
	workers := AutoScale(len(tasks), c.MaxParallelOverride)
	results := runPool(tasks, workers, run)
	return RunResult{Results: results, Success: anySucceeded(results)}
}

// runDependencyAware levels tasks via Kahn's algorithm and executes level by
// level, skipping all remaining levels the moment one fails (spec §4.9
// "Dependency-aware").
func (c *BuilderCoordinator) runDependencyAware(tasks []Task, run Runner) RunResult {
	levels, cyclic := Levels(tasks)
	if len(cyclic) > 0 {
		levels = append(levels, cyclic) // best-effort final level, per spec §4.9 step 3
	}

	var all []Result
	var skipped []int
	failedAtLevel := -1

	for i, level := range levels {
		if failedAtLevel >= 0 {
			skipped = append(skipped, i)
			continue
		}

		workers := AutoScale(len(level), c.MaxParallelOverride)
		results := runPool(level, workers, run)
		all = append(all, results...)

		if hasFailure(results) {
			failedAtLevel = i
		}
	}

	return RunResult{
		Results:       all,
		Levels:        levels,
		Cyclic:        cyclic,
		Success:       anySucceeded(all),
		SkippedLevels: skipped,
	}
}

func hasFailure(results []Result) bool {
	for _, r := range results {
		if !r.Success {
			return true
		}
	}
	return false
}

// IncrementalResult is what RunIncremental reports.
type IncrementalResult struct {
	RunResult
	ZeroWork bool // true when no changes were detected, nothing was run
}

// RunIncremental restricts execution to tasks affected by observed file
// changes, falling back to running every task if changes exist but no
// affected task could be identified (e.g. brand-new files), and to a
// zero-work success if nothing changed at all (spec §4.9 "Incremental
// mode", invariant 5).
func (c *BuilderCoordinator) RunIncremental(tasks []Task, tracker BuildStateTracker, run Runner) IncrementalResult {
	changed := tracker.GetChangedFiles()
	if len(changed) == 0 {
		return IncrementalResult{ZeroWork: true, RunResult: RunResult{Success: true}}
	}

	affectedTaskIDs := tracker.GetAffectedTasks(changed)
	affected := filterTasks(tasks, affectedTaskIDs)
	if len(affected) == 0 {
		// Changes exist but couldn't be mapped to tasks (e.g. new files) -
		// fall back to running everything (spec §4.9).
		affected = tasks
	}

	result := c.runDependencyAware(affected, run)
	return IncrementalResult{RunResult: result}
}

func filterTasks(tasks []Task, ids []string) []Task {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Task
	for _, t := range tasks {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out
}
