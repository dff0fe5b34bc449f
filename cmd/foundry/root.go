// Command foundry is the CLI contract stub for Context Foundry (spec §6):
// the human-facing CLI is explicitly out of scope for the core ("treated as
// an external collaborator, contract only" per spec §1), so this binary
// wires the documented verb surface straight into the library packages
// without adding any behavior the core doesn't already expose. Modeled on
// the teacher's cobra layout (cmd/ao/root.go in the agentops CLI example):
// one file per verb, a package-level rootCmd, global persistent flags.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	projectDir string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "foundry",
	Short: "Context Foundry: spec-first, multi-phase LLM code generation",
	Long: `foundry drives the Scout -> Architect -> Builder pipeline against a
project directory, producing a reviewable blueprint (RESEARCH.md, SPEC.md,
PLAN.md, TASKS.md) before any code is written, then builds task-by-task with
an optional validate + self-heal loop.

Verbs: build, fix, enhance, status, config, models, pricing, estimate.
There are no patterns, analyze or serve verbs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "project-dir", ".", "project directory to operate on")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
}

// Execute runs the root command, translating the result into the exit codes
// spec §6 documents: 0 success, 1 failure, 130 user interrupt.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if err == errUserInterrupt {
			return 130
		}
		fmt.Fprintln(os.Stderr, "foundry:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(Execute())
}
