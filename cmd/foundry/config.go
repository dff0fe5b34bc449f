package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"foundry.dev/core/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved runtime configuration (credentials redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Printf("foundry home:  %s\n", cfg.FoundryHome)
		fmt.Printf("project dir:   %s\n", cfg.ProjectDir)
		fmt.Printf("scout:         %s/%s\n", cfg.Scout.Provider, cfg.Scout.Model)
		fmt.Printf("architect:     %s/%s\n", cfg.Architect.Provider, cfg.Architect.Model)
		fmt.Printf("builder:       %s/%s\n", cfg.Builder.Provider, cfg.Builder.Model)
		fmt.Printf("routing:       enabled=%v threshold=%d default=%s complex=%s\n",
			cfg.Router.Enabled, cfg.Router.ComplexityThreshold, cfg.Router.DefaultModel, cfg.Router.ComplexModel)
		fmt.Printf("smoke test:    %v\n", cfg.SmokeTest)
		fmt.Printf("credentials:   anthropic=%v openai=%v google=%v groq=%v mistral=%v fireworks=%v cloudflare=%v zai=%v\n",
			cfg.Credentials.AnthropicAPIKey != "", cfg.Credentials.OpenAIAPIKey != "", cfg.Credentials.GoogleAPIKey != "",
			cfg.Credentials.GroqAPIKey != "", cfg.Credentials.MistralAPIKey != "", cfg.Credentials.FireworksAPIKey != "",
			cfg.Credentials.CloudflareAPIKey != "", cfg.Credentials.ZAIAPIKey != "")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
