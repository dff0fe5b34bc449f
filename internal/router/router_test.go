package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestRouter() *Router {
	return New(Config{
		DefaultModel:        "claude-haiku-4-5",
		ComplexModel:        "claude-opus-4-5",
		ComplexityThreshold: 7,
		Enabled:             true,
	})
}

// TestRoutingScenario corresponds to spec §8 S4.
func TestRoutingScenarioComplexArchitect(t *testing.T) {
	r := newTestRouter()
	d := r.ModelFor("architect", Task{Objective: "Design system architecture and optimize schema"}, Context{WorkflowComplexity: "Complex"})
	assert.GreaterOrEqual(t, d.Score, 7)
	assert.Equal(t, "claude-opus-4-5", d.Model)
	assert.True(t, d.UsedComplex)
}

func TestRoutingScenarioSimpleBuilder(t *testing.T) {
	r := newTestRouter()
	d := r.ModelFor("builder", Task{Priority: 1, Objective: "Add a log statement"}, Context{WorkflowComplexity: "Simple"})
	assert.Equal(t, "claude-haiku-4-5", d.Model)
	assert.False(t, d.UsedComplex)
}

// TestRoutingDeterminism corresponds to spec §8 invariant 8.
func TestRoutingDeterminism(t *testing.T) {
	r := newTestRouter()
	task := Task{Priority: 9, Objective: "Refactor the authentication protocol"}
	ctx := Context{WorkflowComplexity: "Medium", HasDependencies: true}

	d1 := r.ModelFor("builder", task, ctx)
	d2 := r.ModelFor("builder", task, ctx)

	assert.Equal(t, d1.Score, d2.Score)
	assert.Equal(t, d1.Model, d2.Model)
}

func TestScoreComplexityPriorityStacking(t *testing.T) {
	// priority 9 stacks +2 (>=8) + 2 (>=9) = +4 on top of phase bonus.
	score, _ := scoreComplexity("builder", Task{Priority: 9}, Context{})
	assert.Equal(t, 4, score)

	// priority 8 (but <9) stacks +2 (>=8) + 1 (>=8<9) = +3.
	score, _ = scoreComplexity("builder", Task{Priority: 8}, Context{})
	assert.Equal(t, 3, score)
}

func TestKeywordScoreCappedAtFour(t *testing.T) {
	score, matched := scoreComplexity("builder", Task{
		Objective: "architecture algorithm security schema distributed optimize",
	}, Context{})
	assert.Len(t, matched, 6)
	assert.Equal(t, 4, score)
}

func TestRoutingDisabledReturnsDefault(t *testing.T) {
	r := New(Config{DefaultModel: "default-model", Enabled: false})
	d := r.ModelFor("architect", Task{}, Context{WorkflowComplexity: "Complex"})
	assert.Equal(t, "default-model", d.Model)
	assert.Equal(t, "Routing disabled", d.Reason)
}

func TestStatsAggregation(t *testing.T) {
	r := newTestRouter()
	r.ModelFor("builder", Task{Priority: 1}, Context{})
	r.ModelFor("architect", Task{Objective: "Design system architecture"}, Context{WorkflowComplexity: "Complex"})

	stats := r.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.DefaultModelCount)
	assert.Equal(t, 1, stats.ComplexModelCount)
	assert.Equal(t, 50.0, stats.DefaultModelPercent)
}
