package main

import (
	"strings"

	"github.com/spf13/cobra"

	"foundry.dev/core/internal/orchestrator"
)

var buildFlags workflowFlags

var buildCmd = &cobra.Command{
	Use:   "build [task description]",
	Short: "Run Scout -> Architect -> Builder for a new task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(orchestrator.ModeNew, strings.Join(args, " "), buildFlags)
	},
}

func init() {
	addWorkflowFlags(buildCmd, &buildFlags)
	rootCmd.AddCommand(buildCmd)
}
