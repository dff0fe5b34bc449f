package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"foundry.dev/core/internal/blueprint"
	"foundry.dev/core/internal/buildstate"
	"foundry.dev/core/internal/cache"
	"foundry.dev/core/internal/config"
	"foundry.dev/core/internal/contextmgr"
	"foundry.dev/core/internal/coordinator"
	"foundry.dev/core/internal/ids"
	"foundry.dev/core/internal/llmclient"
	"foundry.dev/core/internal/logging"
	"foundry.dev/core/internal/orchestrator"
	"foundry.dev/core/internal/pricing"
	"foundry.dev/core/internal/provider"
	"foundry.dev/core/internal/router"
	"foundry.dev/core/internal/telemetry"
	"foundry.dev/core/internal/validate"
)

// errUserInterrupt signals Ctrl-C to Execute, mapped to exit code 130.
var errUserInterrupt = errors.New("interrupted")

// app bundles every collaborator a verb's RunE needs, assembled once from
// the environment (spec §6 "Environment inputs").
type app struct {
	cfg      config.Config
	orch     *orchestrator.Orchestrator
	deps     orchestrator.Dependencies
	registry *provider.Registry
	tracker  *pricing.Tracker

	tel *telemetry.Telemetry
}

// newApp wires the full dependency graph in the order spec §2 lists it
// (leaves first): registry -> cache -> router -> client -> context manager
// -> build state -> coordinators -> validators -> blueprint/checkpoint
// store -> orchestrator.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if projectDir != "" && projectDir != "." {
		cfg.ProjectDir = projectDir
	}

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint: cfg.OTel.Endpoint, Headers: cfg.OTel.Headers,
		ServiceName: cfg.OTel.ServiceName, ServiceVersion: cfg.OTel.ServiceVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry setup: %w", err)
	}

	if err := ids.Init(1); err != nil {
		return nil, fmt.Errorf("initializing id generator: %w", err)
	}

	// Both writers add the {timestamp} directory themselves.
	logsRoot := "logs"
	if _, err := logging.Setup(logging.Config{Production: cfg.OTel.Enabled(), RunLogDir: logsRoot}); err != nil {
		return nil, fmt.Errorf("logging setup: %w", err)
	}
	sessionLog, err := logging.NewSessionLog(logsRoot)
	if err != nil {
		return nil, fmt.Errorf("session log: %w", err)
	}

	reg := provider.NewRegistry()
	registerConfiguredProviders(reg, cfg.Credentials)

	respCache, err := cache.New(filepath.Join(cfg.FoundryHome, "cache", "llm_responses"), cache.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("opening response cache: %w", err)
	}

	r := router.New(router.Config{
		DefaultModel: cfg.Router.DefaultModel, ComplexModel: cfg.Router.ComplexModel,
		ComplexityThreshold: cfg.Router.ComplexityThreshold,
	})
	if !cfg.Router.Enabled {
		r = nil
	}

	tracker := pricing.New(reg)

	client, err := llmclient.New(reg, respCache, r, tracker, llmclient.Settings{
		Scout:     llmclient.PhaseSetting{Provider: cfg.Scout.Provider, Model: cfg.Scout.Model},
		Architect: llmclient.PhaseSetting{Provider: cfg.Architect.Provider, Model: cfg.Architect.Model},
		Builder:   llmclient.PhaseSetting{Provider: cfg.Builder.Provider, Model: cfg.Builder.Model},
	}, cfg.BuilderTaskOverrides, sessionLog)
	if err != nil {
		return nil, fmt.Errorf("constructing LLM client: %w", err)
	}

	store, err := blueprint.NewStore(cfg.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("opening blueprint store: %w", err)
	}
	checkpoints := blueprint.NewCheckpointStore(filepath.Join(cfg.FoundryHome, "checkpoints"))

	bst, err := buildstate.Load(filepath.Join(store.Dir(), "build_state.json"), cfg.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("loading build state: %w", err)
	}

	sessionID := ids.SessionID(filepath.Base(cfg.ProjectDir))
	ctxMgr := contextmgr.New(sessionID, 200_000, contextmgr.Thresholds{}, filepath.Join(cfg.FoundryHome, "checkpoints"))

	deps := orchestrator.Dependencies{
		Client:       client,
		Blueprint:    store,
		Checkpoints:  checkpoints,
		BuildState:   bst,
		ScoutCoord:   coordinator.NewScoutCoordinator(),
		BuilderCoord: coordinator.NewBuilderCoordinator(),
		ContextMgr:   ctxMgr,
		Validators: validate.Pipeline{Validators: []validate.Validator{
			&validate.StructureValidator{},
			&validate.ReferenceValidator{},
		}},
		Pricing:     tracker,
		Cache:       respCache,
		ProjectDir:  cfg.ProjectDir,
		ProjectName: filepath.Base(cfg.ProjectDir),
	}
	if cfg.SmokeTest {
		deps.Validators.Validators = append(deps.Validators.Validators, &validate.BuildValidator{})
	}

	return &app{cfg: cfg, orch: orchestrator.New(deps), deps: deps, registry: reg, tracker: tracker, tel: tel}, nil
}

// withInterruptContext cancels ctx on SIGINT/SIGTERM and maps that case to
// errUserInterrupt for Execute's exit-code translation (spec §6, exit 130).
func withInterruptContext(run func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil && ctx.Err() != nil {
		return errUserInterrupt
	}
	return err
}

func registerConfiguredProviders(reg *provider.Registry, creds config.Credentials) {
	if creds.AnthropicAPIKey != "" {
		reg.Register(provider.NewAnthropic(creds.AnthropicAPIKey))
	}
	if creds.OpenAIAPIKey != "" {
		reg.Register(provider.NewOpenAI(creds.OpenAIAPIKey))
	}
	if creds.GoogleAPIKey != "" {
		reg.Register(provider.NewGemini(creds.GoogleAPIKey))
	}
	if creds.GroqAPIKey != "" {
		reg.Register(provider.NewGroq(creds.GroqAPIKey))
	}
	if creds.MistralAPIKey != "" {
		reg.Register(provider.NewMistral(creds.MistralAPIKey))
	}
	if creds.FireworksAPIKey != "" {
		reg.Register(provider.NewFireworks(creds.FireworksAPIKey))
	}
	if creds.ZAIAPIKey != "" {
		reg.Register(provider.NewZAI(creds.ZAIAPIKey))
	}
	if creds.CloudflareAPIKey != "" && creds.CloudflareAccount != "" {
		reg.Register(provider.NewCloudflare(creds.CloudflareAPIKey, creds.CloudflareAccount))
	}
}
