package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// tomlOverlay mirrors the subset of Config a project may override via a
// checked-in .context-foundry.toml, applied after env vars so per-project
// defaults can be versioned without exporting shell variables.
type tomlOverlay struct {
	Scout     *overlayPhase `toml:"scout"`
	Architect *overlayPhase `toml:"architect"`
	Builder   *overlayPhase `toml:"builder"`
	Router    *overlayRouter `toml:"router"`
}

type overlayPhase struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
}

type overlayRouter struct {
	DefaultModel        string `toml:"default_model"`
	ComplexModel        string `toml:"complex_model"`
	ComplexityThreshold int    `toml:"complexity_threshold"`
	Enabled             *bool  `toml:"enabled"`
}

// applyTOMLOverlay merges a project-level .context-foundry.toml into cfg.
// Only explicitly set fields in the overlay replace env-derived defaults;
// env vars set in the process still win if the caller wants that by simply
// not shipping a toml file, matching the teacher's env-first config posture.
func applyTOMLOverlay(path string, cfg *Config) error {
	var overlay tomlOverlay
	if _, err := toml.DecodeFile(path, &overlay); err != nil {
		return fmt.Errorf("config: decoding %s: %w", path, err)
	}

	if overlay.Scout != nil {
		mergePhase(&cfg.Scout, overlay.Scout)
	}
	if overlay.Architect != nil {
		mergePhase(&cfg.Architect, overlay.Architect)
	}
	if overlay.Builder != nil {
		mergePhase(&cfg.Builder, overlay.Builder)
	}
	if overlay.Router != nil {
		if overlay.Router.DefaultModel != "" {
			cfg.Router.DefaultModel = overlay.Router.DefaultModel
		}
		if overlay.Router.ComplexModel != "" {
			cfg.Router.ComplexModel = overlay.Router.ComplexModel
		}
		if overlay.Router.ComplexityThreshold != 0 {
			cfg.Router.ComplexityThreshold = overlay.Router.ComplexityThreshold
		}
		if overlay.Router.Enabled != nil {
			cfg.Router.Enabled = *overlay.Router.Enabled
		}
	}

	return nil
}

func mergePhase(dst *PhaseModel, src *overlayPhase) {
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
}
