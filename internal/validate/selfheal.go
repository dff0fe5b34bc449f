package validate

import (
	"time"
)

// CriterionScore is one judge dimension's verdict (spec §4.12).
type CriterionScore struct {
	Score  float64
	Issues []string
}

// JudgeScores covers the five fixed criteria the self-heal loop checks
// every attempt against (spec §4.12).
type JudgeScores struct {
	Functionality  CriterionScore
	Completeness   CriterionScore
	CodeQuality    CriterionScore
	TestCoverage   CriterionScore
	Documentation  CriterionScore
}

// Judge scores the current artifacts against requirements.
type Judge func(root string) (JudgeScores, error)

// FixTask is a synthesized targeted fix, shaped like a coordinator task
// without importing internal/coordinator (kept narrow to avoid an import
// cycle between the two packages; orchestrator composes them).
type FixTask struct {
	Objective string
	Priority  int // 0 = most urgent
	Criterion string
}

// lowScoreThreshold is the cutoff below which a criterion gets a fix task
// (spec §4.12).
const lowScoreThreshold = 0.7

// urgentThreshold marks a criterion urgent enough for priority 0 instead of 1.
const urgentThreshold = 0.5

// SynthesizeFixTasks turns judge scores into a priority-sorted list of fix
// tasks, one per criterion scoring below lowScoreThreshold, plus a
// priority-0 task referencing the exact runtime error when stderr is
// present (spec §4.12 step 3).
func SynthesizeFixTasks(scores JudgeScores, runtimeStderr string) []FixTask {
	var tasks []FixTask

	if runtimeStderr != "" {
		tasks = append(tasks, FixTask{
			Objective: "Fix the runtime error: " + runtimeStderr,
			Priority:  0,
			Criterion: "runtime",
		})
	}

	criteria := []struct {
		name  string
		score CriterionScore
	}{
		{"functionality", scores.Functionality},
		{"completeness", scores.Completeness},
		{"code_quality", scores.CodeQuality},
		{"test_coverage", scores.TestCoverage},
		{"documentation", scores.Documentation},
	}

	for _, c := range criteria {
		if c.score.Score >= lowScoreThreshold {
			continue
		}
		priority := 1
		if c.score.Score < urgentThreshold {
			priority = 0
		}
		tasks = append(tasks, FixTask{
			Objective: buildFixObjective(c.name, c.score),
			Priority:  priority,
			Criterion: c.name,
		})
	}

	sortByPriority(tasks)
	return tasks
}

func buildFixObjective(criterion string, score CriterionScore) string {
	objective := "Address " + criterion + " issues: "
	for i, issue := range score.Issues {
		if i > 0 {
			objective += "; "
		}
		objective += issue
	}
	if len(score.Issues) == 0 {
		objective += "score below acceptable threshold"
	}
	return objective
}

func sortByPriority(tasks []FixTask) {
	for i := 1; i < len(tasks); i++ {
		for j := i; j > 0 && tasks[j].Priority < tasks[j-1].Priority; j-- {
			tasks[j], tasks[j-1] = tasks[j-1], tasks[j]
		}
	}
}

// Pipeline runs every configured Validator in order and reports every
// validator's outcome plus whether all of them passed (spec §4.12).
type Pipeline struct {
	Validators []Validator
}

// Run executes every validator and reports whether all passed.
func (p Pipeline) Run(root string) ([]Outcome, bool) {
	outcomes := make([]Outcome, 0, len(p.Validators))
	allPassed := true
	for _, v := range p.Validators {
		outcome := v.Validate(root)
		outcomes = append(outcomes, outcome)
		if !outcome.Passed {
			allPassed = false
		}
	}
	return outcomes, allPassed
}

// HealResult is the self-heal loop's terminal report (spec §4.12).
type HealResult struct {
	Success    bool
	Attempts   int
	LastScores JudgeScores
	Outcomes   []Outcome
}

// BuildFix runs the dependency-aware builder coordinator over a set of fix
// tasks. Kept as an interface so this package doesn't import
// internal/coordinator.
type BuildFix func(tasks []FixTask) error

// SelfHeal runs the validator pipeline, and on failure asks judge to score
// the artifacts and synthesizes/executes fix tasks, up to maxAttempts
// total (spec §4.12). It sleeps briefly between attempts to let the
// filesystem settle, per spec.
func SelfHeal(root string, pipeline Pipeline, judge Judge, fix BuildFix, maxAttempts int) (HealResult, error) {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var result HealResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		outcomes, passed := pipeline.Run(root)
		result.Outcomes = outcomes
		if passed {
			result.Success = true
			return result, nil
		}

		if judge == nil {
			break
		}
		scores, err := judge(root)
		if err != nil {
			return result, err
		}
		result.LastScores = scores

		stderr := firstStderr(outcomes)
		tasks := SynthesizeFixTasks(scores, stderr)
		if len(tasks) == 0 {
			break
		}

		if fix != nil {
			if err := fix(tasks); err != nil {
				return result, err
			}
		}

		if attempt < maxAttempts {
			time.Sleep(200 * time.Millisecond)
		}
	}

	return result, nil
}

func firstStderr(outcomes []Outcome) string {
	for _, o := range outcomes {
		if o.Name != "runtime" {
			continue
		}
		for _, d := range o.Details {
			if d.Stderr != "" {
				return d.Stderr
			}
		}
	}
	return ""
}
