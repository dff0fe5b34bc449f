package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"
)

// Opt-in subprocess timeouts (spec §5).
const (
	InstallTimeout = 3 * time.Minute
	BuildTimeout   = 3 * time.Minute
	RuntimeTimeout = 30 * time.Second
)

var moduleNotFoundRe = regexp.MustCompile(`(?i)(?:module not found|cannot find module|can't resolve)[:\s]*['"]?([^'"\n]+)['"]?`)

// BuildValidator runs `npm install` then `npm run build` when the project
// declares a build script, parsing common module-not-found errors out of
// the failure (spec §4.12, opt-in).
type BuildValidator struct {
	// Runner overrides command execution for tests; defaults to os/exec.
	Runner CommandRunner
}

// CommandRunner executes one command with a bound and returns its combined
// exit code, stdout+stderr, and any launch error.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) (exitCode int, output string, err error)

func defaultRunner(ctx context.Context, dir, name string, args ...string) (int, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		return -1, buf.String(), err
	}
	return exitCode, buf.String(), nil
}

func (v BuildValidator) Name() string { return "build" }

func (v BuildValidator) Validate(root string) Outcome {
	outcome := Outcome{Name: "build", Passed: true}

	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return outcome
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil || pkg.Scripts["build"] == "" {
		return outcome
	}

	run := v.Runner
	if run == nil {
		run = defaultRunner
	}

	installCtx, cancel := context.WithTimeout(context.Background(), InstallTimeout)
	defer cancel()
	if code, out, err := run(installCtx, root, "npm", "install"); err != nil || code != 0 {
		outcome.Passed = false
		outcome.Details = append(outcome.Details, Detail{
			Message: "npm install failed", Command: "npm install", ExitCode: code, Stderr: out,
		})
		return outcome
	}

	buildCtx, cancel2 := context.WithTimeout(context.Background(), BuildTimeout)
	defer cancel2()
	code, out, err := run(buildCtx, root, "npm", "run", "build")
	if err != nil || code != 0 {
		outcome.Passed = false
		detail := Detail{Message: "npm run build failed", Command: "npm run build", ExitCode: code, Stderr: out}
		if m := moduleNotFoundRe.FindStringSubmatch(out); m != nil {
			detail.Message = fmt.Sprintf("npm run build failed: module not found: %s", m[1])
		}
		outcome.Details = append(outcome.Details, detail)
	}
	return outcome
}
