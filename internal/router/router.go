// Package router implements the Model Router (spec §4.4): scores a task's
// complexity on a 0-10 scale and chooses between a default and a complex
// model against a configurable threshold. The scoring algorithm is ported
// unchanged from the original Python implementation's ace/model_router.py.
package router

import (
	"strings"
	"sync"
)

// complexKeywords is the closed set of terms that bump a task's score when
// they appear in its objective, ported verbatim from ace/model_router.py's
// COMPLEX_KEYWORDS.
var complexKeywords = []string{
	"architecture", "architect", "design pattern", "system design", "algorithm",
	"optimization", "optimize", "security", "authentication", "authorization",
	"encryption", "database schema", "data model", "relational", "normalization",
	"distributed", "scalability", "performance critical", "integration",
	"api design", "protocol", "refactor", "migration", "transformation",
}

// Task carries the attributes the scorer needs about one subagent task.
type Task struct {
	Priority  int
	Objective string
}

// Context carries the non-task signals the scorer uses.
type Context struct {
	WorkflowComplexity string // "Simple" | "Medium" | "Complex"
	HasDependencies    bool
	LargeFiles         bool
}

// Decision records the outcome of one routing call, for Stats().
type Decision struct {
	Phase           string
	Score           int
	Model           string
	UsedComplex     bool
	MatchedKeywords []string
	Reason          string
}

// Config configures the router from spec §6's env vars.
type Config struct {
	DefaultModel        string
	ComplexModel        string
	ComplexityThreshold int
	Enabled             bool
}

// Router scores tasks and records a decision ledger for later reporting
// (SPEC_FULL §D.1).
type Router struct {
	cfg Config

	mu        sync.Mutex
	decisions []Decision
}

// New builds a Router from cfg, defaulting ComplexityThreshold to 7 when unset.
func New(cfg Config) *Router {
	if cfg.ComplexityThreshold == 0 {
		cfg.ComplexityThreshold = 7
	}
	return &Router{cfg: cfg}
}

// ModelFor scores (phase, task, workflowComplexity, context) and returns the
// chosen model plus the full decision (also recorded in the ledger).
func (r *Router) ModelFor(phase string, task Task, ctx Context) Decision {
	if !r.cfg.Enabled {
		d := Decision{Phase: phase, Model: r.cfg.DefaultModel, Reason: "Routing disabled"}
		r.record(d)
		return d
	}

	score, matched := scoreComplexity(phase, task, ctx)

	d := Decision{Phase: phase, Score: score, MatchedKeywords: matched}
	if score >= r.cfg.ComplexityThreshold {
		d.Model = r.cfg.ComplexModel
		d.UsedComplex = true
		d.Reason = "Complexity score met threshold"
	} else {
		d.Model = r.cfg.DefaultModel
		d.Reason = "Complexity score below threshold"
	}

	r.record(d)
	return d
}

func (r *Router) record(d Decision) {
	r.mu.Lock()
	r.decisions = append(r.decisions, d)
	r.mu.Unlock()
}

// scoreComplexity implements the exact scoring rules from
// ace/model_router.py's _score_complexity: phase and priority bumps stack,
// keyword matches are capped at +4, and workflow/context flags each add a
// fixed amount. The result is not clamped, so it can exceed 10 (architect +3,
// keywords +4, "Complex" +3 and both context flags +2 sum to 12).
func scoreComplexity(phase string, task Task, ctx Context) (int, []string) {
	score := 0

	if phase == "architect" {
		score += 3
	}
	if phase == "builder" {
		if task.Priority >= 8 {
			score += 2
		}
		if task.Priority >= 9 {
			score += 2
		} else if task.Priority >= 8 {
			score += 1
		}
	}

	matched := matchKeywords(task.Objective)
	keywordScore := len(matched) * 2
	if keywordScore > 4 {
		keywordScore = 4
	}
	score += keywordScore

	switch {
	case strings.HasPrefix(ctx.WorkflowComplexity, "Complex"):
		score += 3
	case strings.HasPrefix(ctx.WorkflowComplexity, "Medium"):
		score += 1
	}

	if ctx.HasDependencies {
		score++
	}
	if ctx.LargeFiles {
		score++
	}

	return score, matched
}

func matchKeywords(objective string) []string {
	lower := strings.ToLower(objective)
	var matched []string
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// Stats aggregates the decision ledger: per-model counts, percentages, and
// the average complexity score (ported from ace/model_router.py's
// get_routing_stats, SPEC_FULL §D.1).
type Stats struct {
	Total               int
	DefaultModelCount    int
	ComplexModelCount    int
	DefaultModelPercent  float64
	ComplexModelPercent  float64
	AverageComplexity    float64
}

func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s Stats
	s.Total = len(r.decisions)
	if s.Total == 0 {
		return s
	}

	var scoreSum int
	for _, d := range r.decisions {
		if d.UsedComplex {
			s.ComplexModelCount++
		} else {
			s.DefaultModelCount++
		}
		scoreSum += d.Score
	}

	s.DefaultModelPercent = float64(s.DefaultModelCount) / float64(s.Total) * 100
	s.ComplexModelPercent = float64(s.ComplexModelCount) / float64(s.Total) * 100
	s.AverageComplexity = float64(scoreSum) / float64(s.Total)
	return s
}
