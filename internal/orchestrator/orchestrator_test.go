package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundry.dev/core/internal/blueprint"
	"foundry.dev/core/internal/buildstate"
	"foundry.dev/core/internal/cache"
	"foundry.dev/core/internal/coordinator"
	"foundry.dev/core/internal/llmclient"
	"foundry.dev/core/internal/pricing"
	"foundry.dev/core/internal/provider"
	"foundry.dev/core/internal/validate"
)

// scriptedProvider returns canned responses in call order, keyed by phase
// (derived from the model name each phase config points at), so tests can
// script Scout/Architect/Builder output independently without a real
// network-backed provider.
type scriptedProvider struct {
	responses map[string][]string // model -> queued contents
	calls     int
}

func (p *scriptedProvider) Name() string        { return "scripted" }
func (p *scriptedProvider) DisplayName() string  { return "Scripted" }
func (p *scriptedProvider) IsConfigured() bool   { return true }
func (p *scriptedProvider) AvailableModels() []provider.Model {
	return []provider.Model{{Name: "scout-model"}, {Name: "architect-model"}, {Name: "builder-model"}}
}
func (p *scriptedProvider) ValidateModel(name string) bool { return true }
func (p *scriptedProvider) FallbackPricing() map[string]provider.ModelPricing {
	return map[string]provider.ModelPricing{}
}
func (p *scriptedProvider) Call(ctx context.Context, messages []provider.Message, model string, opts provider.CallOptions) (provider.ProviderResponse, error) {
	p.calls++
	queue := p.responses[model]
	if len(queue) == 0 {
		return provider.ProviderResponse{}, fmt.Errorf("scriptedProvider: no queued response for model %q", model)
	}
	content := queue[0]
	p.responses[model] = queue[1:]
	return provider.ProviderResponse{Content: content, Model: model, InputTokens: 10, OutputTokens: 20, FinishReason: "stop"}, nil
}

func newTestClient(t *testing.T, responses map[string][]string) (*llmclient.Client, *pricing.Tracker, *cache.Cache) {
	t.Helper()
	reg := provider.NewRegistry()
	reg.Register(&scriptedProvider{responses: responses})

	c, err := cache.New(t.TempDir(), 0)
	require.NoError(t, err)

	tracker := pricing.New(reg)

	client, err := llmclient.New(reg, c, nil, tracker, llmclient.Settings{
		Scout:     llmclient.PhaseSetting{Provider: "scripted", Model: "scout-model"},
		Architect: llmclient.PhaseSetting{Provider: "scripted", Model: "architect-model"},
		Builder:   llmclient.PhaseSetting{Provider: "scripted", Model: "builder-model"},
	}, nil, nil)
	require.NoError(t, err)
	return client, tracker, c
}

const architectOutput = `# Specification:
spec body

# Implementation Plan:
plan body

# Task Breakdown:
### Task 1: write greeter
- **Files**: greeter.go
- **Changes**: add Greet function
`

const builderOutput = "FILE: greeter.go\n```go\npackage greeter\n\nfunc Greet() string { return \"hi\" }\n```"

func baseDeps(t *testing.T, client *llmclient.Client, tracker *pricing.Tracker, c *cache.Cache) Dependencies {
	t.Helper()
	projectDir := t.TempDir()
	store, err := blueprint.NewStore(projectDir)
	require.NoError(t, err)

	bst, err := buildstate.Load(projectDir+"/.buildstate.json", projectDir)
	require.NoError(t, err)

	return Dependencies{
		Client:      client,
		Blueprint:   store,
		Checkpoints: blueprint.NewCheckpointStore(projectDir),
		BuildState:  bst,
		ScoutCoord:  coordinator.NewScoutCoordinator(),
		BuilderCoord: coordinator.NewBuilderCoordinator(),
		Pricing:     tracker,
		Cache:       c,
		ProjectDir:  projectDir,
		ProjectName: "demo",
	}
}

func TestRunCompletesAutonomousSession(t *testing.T) {
	client, tracker, c := newTestClient(t, map[string][]string{
		"scout-model":     {"research findings"},
		"architect-model": {architectOutput},
		"builder-model":   {builderOutput},
	})
	deps := baseDeps(t, client, tracker, c)

	orch := New(deps)
	result := orch.Run(context.Background(), Options{Mode: ModeNew, Task: "build a greeter", Autonomous: true})

	require.NoError(t, result.Err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "research findings", result.Research)
	assert.Contains(t, result.Spec, "spec body")
	require.Len(t, result.BuilderResults, 1)
	assert.True(t, result.BuilderResults[0].Success)
	assert.Contains(t, result.BuilderResults[0].FilesWritten, "greeter.go")

	m, err := deps.Blueprint.LoadManifest("demo")
	require.NoError(t, err)
	require.Len(t, m.Sessions, 1)
	assert.Equal(t, "success", m.Sessions[0].Status)
	require.NotNil(t, m.Sessions[0].Metrics)
	assert.Greater(t, m.Sessions[0].Metrics.TotalTokens, 0)
	assert.Contains(t, m.Sessions[0].Metrics.PhaseDurations, PhaseScout)
	assert.Contains(t, m.Sessions[0].Metrics.PhaseDurations, PhaseArchitect)
	assert.Contains(t, m.Sessions[0].Metrics.PhaseDurations, PhaseBuilder)
}

func TestRunAbortsWhenApprovalRejectsScout(t *testing.T) {
	client, tracker, c := newTestClient(t, map[string][]string{
		"scout-model": {"research findings"},
	})
	deps := baseDeps(t, client, tracker, c)
	orch := New(deps)

	result := orch.Run(context.Background(), Options{
		Mode: ModeNew, Task: "build a greeter",
		Approve: func(phase, content string) bool { return false },
	})

	assert.Equal(t, StatusAborted, result.Status)
	assert.Empty(t, result.Spec)
}

func TestRunUnattendedSkipsApproveEvenIfSet(t *testing.T) {
	called := false
	client, tracker, c := newTestClient(t, map[string][]string{
		"scout-model":     {"research findings"},
		"architect-model": {architectOutput},
		"builder-model":   {builderOutput},
	})
	deps := baseDeps(t, client, tracker, c)
	orch := New(deps)

	result := orch.Run(context.Background(), Options{
		Mode: ModeNew, Task: "build a greeter", Unattended: true,
		Approve: func(phase, content string) bool { called = true; return false },
	})

	assert.False(t, called)
	assert.Equal(t, StatusSuccess, result.Status)
}

func TestRunResumeTasksFiltersAndWarnsOutOfRange(t *testing.T) {
	client, tracker, c := newTestClient(t, map[string][]string{
		"scout-model":     {"research findings"},
		"architect-model": {architectOutput},
		"builder-model":   {builderOutput},
	})
	deps := baseDeps(t, client, tracker, c)
	orch := New(deps)

	result := orch.Run(context.Background(), Options{
		Mode: ModeNew, Task: "build a greeter", Autonomous: true,
		ResumeTasks: []int{1, 9},
	})

	require.Len(t, result.BuilderResults, 1)
	found := false
	for _, w := range result.ParseWarnings {
		if strings.Contains(w, "index out of range") {
			found = true
		}
	}
	assert.True(t, found, "expected an out-of-range resume warning, got %v", result.ParseWarnings)
}

func TestRunFallsBackToWholeResponseWhenArchitectMarkersMissing(t *testing.T) {
	client, tracker, c := newTestClient(t, map[string][]string{
		"scout-model":     {"research findings"},
		"architect-model": {"no markers here at all"},
	})
	deps := baseDeps(t, client, tracker, c)
	orch := New(deps)

	result := orch.Run(context.Background(), Options{Mode: ModeNew, Task: "x", Autonomous: true})

	assert.Equal(t, "no markers here at all", result.Spec)
	assert.Equal(t, "no markers here at all", result.Plan)
	require.NotEmpty(t, result.ParseWarnings)
}

// flakyValidator fails its first N calls then passes, simulating a
// validator whose target file the self-heal fix eventually writes.
type flakyValidator struct {
	failuresLeft int
}

func (v *flakyValidator) Name() string { return "flaky" }
func (v *flakyValidator) Validate(root string) validate.Outcome {
	if v.failuresLeft > 0 {
		v.failuresLeft--
		return validate.Outcome{Name: "flaky", Passed: false, Details: []validate.Detail{{Message: "not fixed yet"}}}
	}
	return validate.Outcome{Name: "flaky", Passed: true}
}

func TestRunWithSelfHealRetriesUntilValidatorsPass(t *testing.T) {
	client, tracker, c := newTestClient(t, map[string][]string{
		"scout-model":     {"research findings"},
		"architect-model": {architectOutput},
		"builder-model":   {builderOutput, "FILE: fix.go\n```go\npackage greeter\n```"},
	})
	deps := baseDeps(t, client, tracker, c)

	deps.Validators = validate.Pipeline{Validators: []validate.Validator{&flakyValidator{failuresLeft: 1}}}
	deps.Judge = func(root string) (validate.JudgeScores, error) {
		return validate.JudgeScores{Functionality: validate.CriterionScore{Score: 0.4, Issues: []string{"missing fix.go"}}}, nil
	}

	orch := New(deps)
	result := orch.Run(context.Background(), Options{Mode: ModeNew, Task: "build a greeter", Autonomous: true})

	assert.Equal(t, StatusSuccess, result.Status)
	require.NotNil(t, result.HealResult)
	assert.True(t, result.HealResult.Success)
	assert.Equal(t, 2, result.HealResult.Attempts)
}

func TestPlanParsesFencedWorkflowPlanJSON(t *testing.T) {
	planJSON := "```json\n" + `{
		"complexity": "Medium",
		"scout_tasks": [{"id": "s1", "type": "scout", "objective": "survey repo", "priority": 5}],
		"architect_strategy": "single pass",
		"builder_tasks": [{"id": "b1", "type": "builder", "objective": "write greeter", "dependencies": ["s1"]}],
		"validation_tasks": ["run build"],
		"parallelization_strategy": "level-by-level"
	}` + "\n```"

	client, tracker, c := newTestClient(t, map[string][]string{
		"architect-model": {planJSON},
	})
	deps := baseDeps(t, client, tracker, c)
	orch := New(deps)

	plan, err := orch.Plan(context.Background(), "add a greeter", "empty repo")
	require.NoError(t, err)
	assert.Equal(t, "Medium", plan.Complexity)
	require.Len(t, plan.ScoutTasks, 1)
	assert.Equal(t, "s1", plan.ScoutTasks[0].ID)
	require.Len(t, plan.BuilderTasks, 1)
	assert.Equal(t, []string{"s1"}, plan.BuilderTasks[0].Dependencies)
	assert.Equal(t, []string{"run build"}, plan.ValidationTasks)
}

func TestPlanRejectsInvalidJSON(t *testing.T) {
	client, tracker, c := newTestClient(t, map[string][]string{
		"architect-model": {"not json"},
	})
	deps := baseDeps(t, client, tracker, c)
	orch := New(deps)

	_, err := orch.Plan(context.Background(), "x", "y")
	assert.Error(t, err)
}

func TestCompressFindingsComputesRatio(t *testing.T) {
	client, tracker, c := newTestClient(t, map[string][]string{
		"scout-model": {"short summary"},
	})
	deps := baseDeps(t, client, tracker, c)
	orch := New(deps)

	results := []coordinator.Result{
		{TaskID: "s1", Findings: strings.Repeat("long finding text ", 50)},
		{TaskID: "s2", Findings: "another finding"},
	}
	fc, err := orch.CompressFindings(context.Background(), results)
	require.NoError(t, err)
	assert.Equal(t, "short summary", fc.Summary)
	assert.Greater(t, fc.OriginalTokens, 0)
	assert.Greater(t, fc.CompressedTokens, 0)
	assert.Contains(t, fc.Raw, "s1")
}
