// Package coordinator implements the Parallel Scout/Builder Coordinators
// (spec §4.9): bounded-concurrency execution of subagent tasks, with
// topological leveling for dependency-aware builder runs. The
// semaphore-bounded goroutine fan-out pattern is ported from the teacher's
// internal/brain.Planner.executeToolsParallel (maxParallelExplorers +
// sync.WaitGroup + buffered-channel semaphore), generalized from tool calls
// to arbitrary subagent tasks.
package coordinator

// Task is a unit of work delegated to an LLM call (spec §3 SubagentTask).
type Task struct {
	ID           string
	Type         string // scout | builder | validator | architect
	Objective    string
	OutputFormat string
	Tools        []string
	Sources      []string
	Boundaries   []string
	Priority     int
	Dependencies []string
}

// Result is what running one Task produces (spec §3 SubagentResult).
type Result struct {
	TaskID      string
	TaskType    string
	Success     bool
	Findings    string
	FilesWritten []string
	TokenUsage  int
	Error       string
	Metadata    map[string]any
}

// Runner executes a single Task. Implementations are expected to recover
// their own panics into a failure Result; Coordinators additionally
// recover so a panicking Runner never takes down a worker pool.
type Runner func(task Task) Result
