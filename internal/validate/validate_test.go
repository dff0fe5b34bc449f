package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeF(t *testing.T, root, relpath, content string) {
	t.Helper()
	full := filepath.Join(root, relpath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestReferenceValidatorFlagsMissingHTMLTargets(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "index.html", `<html><head><link href="styles.css"><script src="app.js"></script></head></html>`)

	outcome := ReferenceValidator{}.Validate(root)
	assert.False(t, outcome.Passed)
	assert.Len(t, outcome.Details, 2)
}

func TestReferenceValidatorPassesWhenTargetsExist(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "index.html", `<link href="styles.css">`)
	writeF(t, root, "styles.css", "body{}")

	outcome := ReferenceValidator{}.Validate(root)
	assert.True(t, outcome.Passed)
}

func TestReferenceValidatorIgnoresAbsoluteURLs(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "index.html", `<script src="https://cdn.example.com/a.js"></script>`)
	outcome := ReferenceValidator{}.Validate(root)
	assert.True(t, outcome.Passed)
}

func TestReferenceValidatorFlagsMissingJSImport(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "src/app.js", `import helper from './helper'`)

	outcome := ReferenceValidator{}.Validate(root)
	assert.False(t, outcome.Passed)
}

func TestReferenceValidatorResolvesImportWithAppendedJSExt(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "src/app.js", `import helper from './helper'`)
	writeF(t, root, "src/helper.js", "export default {}")

	outcome := ReferenceValidator{}.Validate(root)
	assert.True(t, outcome.Passed)
}

func TestReferenceValidatorSkipsTestFiles(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "src/app.test.js", `import helper from './missing'`)
	outcome := ReferenceValidator{}.Validate(root)
	assert.True(t, outcome.Passed)
}

func TestStructureValidatorRequiresReactScriptsLayout(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "package.json", `{"dependencies":{"react-scripts":"5.0.0"}}`)

	outcome := StructureValidator{}.Validate(root)
	assert.False(t, outcome.Passed)
	assert.Len(t, outcome.Details, 2) // missing public/index.html, src/index.js
}

func TestStructureValidatorFlagsStrayIndexHTML(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "package.json", `{"dependencies":{"react-scripts":"5.0.0"}}`)
	writeF(t, root, "public/index.html", "<html></html>")
	writeF(t, root, "src/index.js", "console.log(1)")
	writeF(t, root, "src/index.html", "<html></html>")

	outcome := StructureValidator{}.Validate(root)
	assert.False(t, outcome.Passed)
}

func TestStructureValidatorViteRequiresRootIndexHTML(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "package.json", `{"devDependencies":{"vite":"5.0.0"}}`)

	outcome := StructureValidator{}.Validate(root)
	assert.False(t, outcome.Passed)
}

func TestStructureValidatorPassesWithNoPackageJSON(t *testing.T) {
	root := t.TempDir()
	outcome := StructureValidator{}.Validate(root)
	assert.True(t, outcome.Passed)
}

func TestBuildValidatorSkipsWhenNoBuildScript(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "package.json", `{"scripts":{"test":"jest"}}`)
	outcome := BuildValidator{}.Validate(root)
	assert.True(t, outcome.Passed)
}

func TestBuildValidatorFailsAndParsesModuleNotFound(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "package.json", `{"scripts":{"build":"vite build"}}`)

	fake := func(ctx context.Context, dir, name string, args ...string) (int, string, error) {
		if name == "npm" && len(args) > 0 && args[0] == "install" {
			return 0, "", nil
		}
		return 1, "Module not found: Error: Can't resolve './Foo' in '/src'", nil
	}

	outcome := BuildValidator{Runner: fake}.Validate(root)
	assert.False(t, outcome.Passed)
	require.Len(t, outcome.Details, 1)
	assert.Contains(t, outcome.Details[0].Message, "module not found")
}

func TestBuildValidatorFailsWhenInstallFails(t *testing.T) {
	root := t.TempDir()
	writeF(t, root, "package.json", `{"scripts":{"build":"vite build"}}`)

	fake := func(ctx context.Context, dir, name string, args ...string) (int, string, error) {
		return 1, "network error", nil
	}
	outcome := BuildValidator{Runner: fake}.Validate(root)
	assert.False(t, outcome.Passed)
	assert.Contains(t, outcome.Details[0].Message, "npm install failed")
}

func TestSynthesizeFixTasksPrioritizesByScoreAndIncludesRuntimeError(t *testing.T) {
	scores := JudgeScores{
		Functionality: CriterionScore{Score: 0.3, Issues: []string{"crashes on load"}},
		Completeness:  CriterionScore{Score: 0.6, Issues: []string{"missing feature X"}},
		CodeQuality:   CriterionScore{Score: 0.9},
		TestCoverage:  CriterionScore{Score: 0.9},
		Documentation: CriterionScore{Score: 0.9},
	}

	tasks := SynthesizeFixTasks(scores, "TypeError: x is not a function")
	require.Len(t, tasks, 3)
	assert.Equal(t, 0, tasks[0].Priority)
	assert.Contains(t, tasks[0].Objective, "TypeError")

	var sawFunctionality, sawCompleteness bool
	for _, tsk := range tasks {
		if tsk.Criterion == "functionality" {
			sawFunctionality = true
			assert.Equal(t, 0, tsk.Priority)
		}
		if tsk.Criterion == "completeness" {
			sawCompleteness = true
			assert.Equal(t, 1, tsk.Priority)
		}
	}
	assert.True(t, sawFunctionality)
	assert.True(t, sawCompleteness)
}

func TestSynthesizeFixTasksEmptyWhenAllScoresHigh(t *testing.T) {
	scores := JudgeScores{
		Functionality: CriterionScore{Score: 0.9},
		Completeness:  CriterionScore{Score: 0.9},
		CodeQuality:   CriterionScore{Score: 0.9},
		TestCoverage:  CriterionScore{Score: 0.9},
		Documentation: CriterionScore{Score: 0.9},
	}
	assert.Empty(t, SynthesizeFixTasks(scores, ""))
}

func TestSelfHealSucceedsImmediatelyWhenValidatorsPass(t *testing.T) {
	root := t.TempDir()
	pipeline := Pipeline{Validators: []Validator{StructureValidator{}}}

	var judgeCalled bool
	result, err := SelfHeal(root, pipeline, func(string) (JudgeScores, error) {
		judgeCalled = true
		return JudgeScores{}, nil
	}, nil, 3)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.False(t, judgeCalled)
}

type failOnceValidator struct{ called int }

func (f *failOnceValidator) Name() string { return "fail-once" }
func (f *failOnceValidator) Validate(root string) Outcome {
	f.called++
	if f.called == 1 {
		return Outcome{Name: "fail-once", Passed: false, Details: []Detail{{Message: "only test files produced"}}}
	}
	return Outcome{Name: "fail-once", Passed: true}
}

func TestSelfHealRunsFixTasksAndEventuallySucceeds(t *testing.T) {
	root := t.TempDir()
	v := &failOnceValidator{}
	pipeline := Pipeline{Validators: []Validator{v}}

	var fixedTasks []FixTask
	result, err := SelfHeal(root, pipeline, func(string) (JudgeScores, error) {
		return JudgeScores{
			Functionality: CriterionScore{Score: 0.9},
			Completeness:  CriterionScore{Score: 0.2, Issues: []string{"only tests, no implementation"}},
			CodeQuality:   CriterionScore{Score: 0.9},
			TestCoverage:  CriterionScore{Score: 0.9},
			Documentation: CriterionScore{Score: 0.9},
		}, nil
	}, func(tasks []FixTask) error {
		fixedTasks = tasks
		return nil
	}, 3)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	require.Len(t, fixedTasks, 1)
	assert.Contains(t, fixedTasks[0].Objective, "completeness")
}

func TestSelfHealExhaustsAttempts(t *testing.T) {
	root := t.TempDir()
	pipeline := Pipeline{Validators: []Validator{
		vFunc(func(string) Outcome { return Outcome{Name: "always-fail", Passed: false} }),
	}}

	result, err := SelfHeal(root, pipeline, func(string) (JudgeScores, error) {
		return JudgeScores{Functionality: CriterionScore{Score: 0.1, Issues: []string{"broken"}}}, nil
	}, func(tasks []FixTask) error { return nil }, 2)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
}

type vFunc func(string) Outcome

func (f vFunc) Name() string              { return "custom" }
func (f vFunc) Validate(root string) Outcome { return f(root) }
