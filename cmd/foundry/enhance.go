package main

import (
	"strings"

	"github.com/spf13/cobra"

	"foundry.dev/core/internal/orchestrator"
)

var enhanceFlags workflowFlags

var enhanceCmd = &cobra.Command{
	Use:   "enhance [enhancement description]",
	Short: "Run the pipeline in enhance mode against the existing blueprint",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(orchestrator.ModeEnhance, strings.Join(args, " "), enhanceFlags)
	},
}

func init() {
	addWorkflowFlags(enhanceCmd, &enhanceFlags)
	rootCmd.AddCommand(enhanceCmd)
}
