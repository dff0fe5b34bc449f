package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List registered providers and their available models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInterruptContext(func(ctx context.Context) error {
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			for _, p := range a.registry.List() {
				fmt.Printf("%s (%s) configured=%v\n", p.Name(), p.DisplayName(), p.IsConfigured())
				for _, m := range p.AvailableModels() {
					fmt.Printf("  - %s\n", m.Name)
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
