package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvDefaults(t *testing.T) {
	os.Unsetenv("FOUNDRY_TEST_VAR")
	assert.Equal(t, "fallback", getEnv("FOUNDRY_TEST_VAR", "fallback"))

	t.Setenv("FOUNDRY_TEST_VAR", "set")
	assert.Equal(t, "set", getEnv("FOUNDRY_TEST_VAR", "fallback"))
}

func TestGetEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("FOUNDRY_TEST_INT", "not-a-number")
	assert.Equal(t, 7, getEnvInt("FOUNDRY_TEST_INT", 7))

	t.Setenv("FOUNDRY_TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("FOUNDRY_TEST_INT", 7))
}

func TestParseBuilderTaskOverrides(t *testing.T) {
	t.Setenv("BUILDER_TASK_1_PROVIDER", "openai")
	t.Setenv("BUILDER_TASK_1_MODEL", "gpt-5-codex")
	t.Setenv("BUILDER_TASK_3_MODEL", "claude-opus-4-5")

	overrides := parseBuilderTaskOverrides()
	require.Contains(t, overrides, 1)
	assert.Equal(t, PhaseModel{Provider: "openai", Model: "gpt-5-codex"}, overrides[1])
	require.Contains(t, overrides, 3)
	assert.Equal(t, "claude-opus-4-5", overrides[3].Model)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("COMPLEXITY_THRESHOLD", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Router.ComplexityThreshold)
	assert.True(t, cfg.Router.Enabled)
}
