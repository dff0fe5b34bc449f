package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current blueprint and session history for this project",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInterruptContext(func(ctx context.Context) error {
			a, err := newApp(ctx)
			if err != nil {
				return err
			}

			manifest, err := a.deps.Blueprint.LoadManifest(a.deps.ProjectName)
			if err != nil {
				return fmt.Errorf("loading manifest: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(manifest)
			}

			fmt.Printf("project:  %s\n", manifest.Project)
			fmt.Printf("sessions: %d\n", len(manifest.Sessions))
			for _, s := range manifest.Sessions {
				fmt.Printf("  - [%s] %s %q -> %s\n", s.Timestamp.Format("2006-01-02 15:04"), s.Type, s.Task, s.Status)
			}
			if manifest.CurrentSpec == "" {
				fmt.Println("no SPEC.md yet — run `foundry build` first")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
