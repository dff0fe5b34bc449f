package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	estimateProvider     string
	estimateModel        string
	estimateInputTokens  int
	estimateOutputTokens int
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the USD cost of a (provider, model) call by token count",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInterruptContext(func(ctx context.Context) error {
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			cost := a.tracker.EstimateCost(estimateProvider, estimateModel, estimateInputTokens, estimateOutputTokens)
			fmt.Printf("$%.4f\n", cost)
			return nil
		})
	},
}

func init() {
	estimateCmd.Flags().StringVar(&estimateProvider, "provider", "", "provider name")
	estimateCmd.Flags().StringVar(&estimateModel, "model", "", "model name")
	estimateCmd.Flags().IntVar(&estimateInputTokens, "input-tokens", 0, "input token count")
	estimateCmd.Flags().IntVar(&estimateOutputTokens, "output-tokens", 0, "output token count")
	_ = estimateCmd.MarkFlagRequired("provider")
	_ = estimateCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(estimateCmd)
}
