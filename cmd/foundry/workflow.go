package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"foundry.dev/core/internal/orchestrator"
)

// workflowFlags are the flags shared by build/fix/enhance, reflecting the
// Phase Orchestrator's Options (spec §4.7).
type workflowFlags struct {
	autonomous  bool
	unattended  bool
	resume      string
	resumeTasks string
}

func addWorkflowFlags(cmd *cobra.Command, f *workflowFlags) {
	cmd.Flags().BoolVar(&f.autonomous, "autonomous", false, "skip approval gates but still run every phase in order")
	cmd.Flags().BoolVar(&f.unattended, "unattended", false, `"ralph wiggum" mode: never consult an approval callback`)
	cmd.Flags().StringVar(&f.resume, "resume", "", "resume an existing session id")
	cmd.Flags().StringVar(&f.resumeTasks, "resume-tasks", "", "comma-separated 1-based task indices to rebuild")
}

// runWorkflow builds the app, runs one orchestrator session for mode, and
// prints the result (spec §6 CLI surface + §7 result statuses).
func runWorkflow(mode, task string, f workflowFlags) error {
	return withInterruptContext(func(ctx context.Context) error {
		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		opts := orchestrator.Options{
			Mode: mode, Task: task,
			Autonomous:    f.autonomous,
			Unattended:    f.unattended,
			ResumeSession: f.resume,
			ResumeTasks:   parseResumeTasks(f.resumeTasks),
		}
		if !f.autonomous && !f.unattended {
			opts.Approve = promptApprove
		}

		result := a.orch.Run(ctx, opts)
		printResult(result)
		if result.Status == orchestrator.StatusError {
			return result.Err
		}
		return nil
	})
}

// promptApprove is the interactive approval gate: prints the phase content
// and asks for a yes/no on stdin (spec §4.7 "Approval gates").
func promptApprove(phase, content string) bool {
	fmt.Printf("\n--- %s output ---\n%s\n------------------\n", phase, content)
	fmt.Print("Proceed? [y/N] ")
	var answer string
	fmt.Scanln(&answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func parseResumeTasks(csv string) []int {
	if csv == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func printResult(result orchestrator.Result) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}

	fmt.Printf("session:  %s\n", result.SessionID)
	fmt.Printf("status:   %s\n", result.Status)
	if len(result.ParseWarnings) > 0 {
		fmt.Println("warnings:")
		for _, w := range result.ParseWarnings {
			fmt.Println("  -", w)
		}
	}
	for _, br := range result.BuilderResults {
		status := "ok"
		if !br.Success {
			status = "FAILED: " + br.Error
		}
		fmt.Printf("  task %d %q: %s\n", br.Index, br.Title, status)
	}
	if result.HealResult != nil {
		fmt.Printf("self-heal: success=%v attempts=%d\n", result.HealResult.Success, result.HealResult.Attempts)
	}
	if result.Err != nil {
		fmt.Println("error:", result.Err)
	}
}
