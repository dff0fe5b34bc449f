package coordinator

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// runPool executes every task in tasks through run, bounded to workers
// concurrent goroutines, using the teacher's semaphore-channel pattern
// (internal/brain.Planner.executeToolsParallel). Results are returned in the
// same order as tasks. A panicking Runner is recovered into a failure
// Result rather than crashing the pool (spec §5: "in-flight subagent tasks
// are allowed to complete").
func runPool(tasks []Task, workers int, run Runner) []Result {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, t Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = runSafely(t, run)
		}(i, task)
	}
	wg.Wait()
	return results
}

// runSafely invokes run, converting a panic into a failure Result so one
// bad task never takes down the rest of the level/pool.
func runSafely(task Task, run Runner) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				TaskID:   task.ID,
				TaskType: task.Type,
				Success:  false,
				Error:    fmt.Sprintf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()
	return run(task)
}

// anySucceeded reports whether at least one result succeeded (the
// partial-failure-tolerance rule used throughout §4.9).
func anySucceeded(results []Result) bool {
	for _, r := range results {
		if r.Success {
			return true
		}
	}
	return false
}
