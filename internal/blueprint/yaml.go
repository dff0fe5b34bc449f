package blueprint

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpecYAML is the optional machine-readable twin of SPEC.md (spec §4.13,
// §6: "optional SPEC.yaml"), giving downstream tooling (validators, the
// runtime probe's endpoint list) a structured view of the architect's
// decisions without re-parsing markdown.
type SpecYAML struct {
	Overview    string            `yaml:"overview"`
	Components  []SpecComponent   `yaml:"components"`
	Endpoints   []string          `yaml:"endpoints,omitempty"`
	NonGoals    []string          `yaml:"non_goals,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
}

// SpecComponent is one architect-identified module/service in the plan.
type SpecComponent struct {
	Name         string   `yaml:"name"`
	Responsibility string `yaml:"responsibility"`
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// WriteSpecYAML marshals spec to YAML and writes it as the canonical
// SPEC.yaml alongside SPEC.md.
func (s *Store) WriteSpecYAML(spec SpecYAML) error {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("blueprint: encoding SPEC.yaml: %w", err)
	}
	if err := os.WriteFile(s.path("SPEC.yaml"), data, 0o644); err != nil {
		return fmt.Errorf("blueprint: writing SPEC.yaml: %w", err)
	}
	return nil
}

// ReadSpecYAML loads SPEC.yaml if present; ok is false if it doesn't
// exist or fails to parse (spec §4.13 treats SPEC.yaml as optional).
func (s *Store) ReadSpecYAML() (spec SpecYAML, ok bool) {
	data, err := os.ReadFile(s.path("SPEC.yaml"))
	if err != nil {
		return SpecYAML{}, false
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return SpecYAML{}, false
	}
	return spec, true
}
