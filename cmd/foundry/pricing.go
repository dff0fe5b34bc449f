package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Show accumulated token usage and estimated cost for this process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInterruptContext(func(ctx context.Context) error {
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			totals := a.tracker.Totals()
			fmt.Printf("calls:          %d\n", totals.CallCount)
			fmt.Printf("input tokens:   %d\n", totals.InputTokens)
			fmt.Printf("output tokens:  %d\n", totals.OutputTokens)
			fmt.Printf("estimated cost: $%.4f\n", totals.EstimatedCostUSD)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(pricingCmd)
}
