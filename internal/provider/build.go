package provider

import "foundry.dev/core/internal/config"

// BuildRegistry registers every provider Context Foundry knows about.
// Providers missing credentials are still registered (IsConfigured reports
// false) so ValidateConfig can distinguish "unknown provider" from
// "unconfigured provider", per spec §4.1.
func BuildRegistry(creds config.Credentials) *Registry {
	r := NewRegistry()
	r.Register(NewAnthropic(creds.AnthropicAPIKey))
	r.Register(NewOpenAI(creds.OpenAIAPIKey))
	r.Register(NewGemini(creds.GoogleAPIKey))
	r.Register(NewGroq(creds.GroqAPIKey))
	r.Register(NewFireworks(creds.FireworksAPIKey))
	r.Register(NewMistral(creds.MistralAPIKey))
	r.Register(NewZAI(creds.ZAIAPIKey))
	r.Register(NewCloudflare(creds.CloudflareAPIKey, creds.CloudflareAccount))
	return r
}
