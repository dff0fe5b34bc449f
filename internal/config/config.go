// Package config loads Context Foundry's runtime configuration from the
// environment, following the teacher's core/config.Config convention of
// typed sub-configs populated by small getEnv/getEnvInt helpers.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PhaseModel names a (provider, model) pair for one phase.
type PhaseModel struct {
	Provider string
	Model    string
}

// Config is the fully resolved runtime configuration.
type Config struct {
	// FoundryHome is the root of the per-user cache/checkpoint tree,
	// default "~/.context-foundry".
	FoundryHome string
	// ProjectDir is the sandbox root generated sources are written under.
	ProjectDir string

	Scout     PhaseModel
	Architect PhaseModel
	Builder   PhaseModel

	// BuilderTaskOverrides maps a 1-based task number to a per-task
	// provider/model override (BUILDER_TASK_{n}_PROVIDER/MODEL).
	BuilderTaskOverrides map[int]PhaseModel

	Router RouterConfig

	Credentials Credentials

	SmokeTest         bool
	PricingAutoUpdate bool
	PricingUpdateDays int

	OTel OTelConfig
}

// RouterConfig configures the model router (spec §4.4).
type RouterConfig struct {
	DefaultModel        string
	ComplexModel        string
	ComplexityThreshold int
	Enabled             bool
}

// Credentials holds provider API keys/account IDs. A provider is considered
// configured iff its required fields here are non-empty.
type Credentials struct {
	AnthropicAPIKey   string
	OpenAIAPIKey      string
	GoogleAPIKey      string
	GroqAPIKey        string
	MistralAPIKey     string
	FireworksAPIKey   string
	CloudflareAPIKey  string
	CloudflareAccount string
	GitHubToken       string
	ZAIAPIKey         string
}

// OTelConfig controls optional tracing (internal/telemetry.Config is built from this).
type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

func (o OTelConfig) Enabled() bool { return o.Endpoint != "" }

// Load reads Config from the process environment.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	cfg := Config{
		FoundryHome: getEnv("FOUNDRY_HOME", filepath.Join(home, ".context-foundry")),
		ProjectDir:  getEnv("FOUNDRY_PROJECT_DIR", "."),

		Scout:     PhaseModel{Provider: getEnv("SCOUT_PROVIDER", "anthropic"), Model: getEnv("SCOUT_MODEL", "")},
		Architect: PhaseModel{Provider: getEnv("ARCHITECT_PROVIDER", "anthropic"), Model: getEnv("ARCHITECT_MODEL", "")},
		Builder:   PhaseModel{Provider: getEnv("BUILDER_PROVIDER", "anthropic"), Model: getEnv("BUILDER_MODEL", "")},

		BuilderTaskOverrides: parseBuilderTaskOverrides(),

		Router: RouterConfig{
			DefaultModel:        getEnv("MODEL_DEFAULT", "claude-haiku-4-5"),
			ComplexModel:        getEnv("MODEL_COMPLEX", "claude-opus-4-5"),
			ComplexityThreshold: getEnvInt("COMPLEXITY_THRESHOLD", 7),
			Enabled:             getEnvBool("MODEL_ROUTING_ENABLED", true),
		},

		Credentials: Credentials{
			AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
			OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
			GoogleAPIKey:      os.Getenv("GOOGLE_API_KEY"),
			GroqAPIKey:        os.Getenv("GROQ_API_KEY"),
			MistralAPIKey:     os.Getenv("MISTRAL_API_KEY"),
			FireworksAPIKey:   os.Getenv("FIREWORKS_API_KEY"),
			CloudflareAPIKey:  os.Getenv("CLOUDFLARE_API_KEY"),
			CloudflareAccount: os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			GitHubToken:       os.Getenv("GITHUB_TOKEN"),
			ZAIAPIKey:         os.Getenv("ZAI_API_KEY"),
		},

		SmokeTest:         getEnvBool("FOUNDRY_SMOKE_TEST", false),
		PricingAutoUpdate: getEnvBool("PRICING_AUTO_UPDATE", true),
		PricingUpdateDays: getEnvInt("PRICING_UPDATE_DAYS", 7),

		OTel: OTelConfig{
			Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Headers:        os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "context-foundry"),
			ServiceVersion: getEnv("FOUNDRY_VERSION", "dev"),
		},
	}

	if overlay := filepath.Join(cfg.ProjectDir, ".context-foundry.toml"); fileExists(overlay) {
		if err := applyTOMLOverlay(overlay, &cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// parseBuilderTaskOverrides scans the environment for BUILDER_TASK_{n}_PROVIDER
// and BUILDER_TASK_{n}_MODEL pairs.
func parseBuilderTaskOverrides() map[int]PhaseModel {
	overrides := make(map[int]PhaseModel)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if !strings.HasPrefix(k, "BUILDER_TASK_") {
			continue
		}
		rest := strings.TrimPrefix(k, "BUILDER_TASK_")
		var n int
		var suffix string
		if idx := strings.IndexByte(rest, '_'); idx > 0 {
			numPart, s := rest[:idx], rest[idx+1:]
			parsed, err := strconv.Atoi(numPart)
			if err != nil {
				continue
			}
			n, suffix = parsed, s
		} else {
			continue
		}
		pm := overrides[n]
		switch suffix {
		case "PROVIDER":
			pm.Provider = v
		case "MODEL":
			pm.Model = v
		default:
			continue
		}
		overrides[n] = pm
	}
	return overrides
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
