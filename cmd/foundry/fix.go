package main

import (
	"strings"

	"github.com/spf13/cobra"

	"foundry.dev/core/internal/orchestrator"
)

var fixFlags workflowFlags

var fixCmd = &cobra.Command{
	Use:   "fix [bug description]",
	Short: "Run the pipeline in fix mode against the existing blueprint",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(orchestrator.ModeFix, strings.Join(args, " "), fixFlags)
	},
}

func init() {
	addWorkflowFlags(fixCmd, &fixFlags)
	rootCmd.AddCommand(fixCmd)
}
