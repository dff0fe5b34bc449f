package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name      string
	configured bool
	models    []Model
}

func (s *stubProvider) Name() string        { return s.name }
func (s *stubProvider) DisplayName() string { return s.name }
func (s *stubProvider) IsConfigured() bool  { return s.configured }
func (s *stubProvider) AvailableModels() []Model { return s.models }
func (s *stubProvider) ValidateModel(name string) bool {
	for _, m := range s.models {
		if m.Name == name {
			return true
		}
	}
	return false
}
func (s *stubProvider) FallbackPricing() map[string]ModelPricing { return nil }
func (s *stubProvider) Call(ctx context.Context, messages []Message, model string, opts CallOptions) (ProviderResponse, error) {
	return ProviderResponse{Content: "stub", Model: model}, nil
}

func TestValidateConfigUnknownProvider(t *testing.T) {
	r := NewRegistry()
	err := r.ValidateConfig("nonexistent", "any-model")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestValidateConfigUnconfigured(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "stub", configured: false})
	err := r.ValidateConfig("stub", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnconfiguredProvider))
}

func TestValidateConfigUnknownModel(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "stub", configured: true, models: []Model{{Name: "known"}}})
	err := r.ValidateConfig("stub", "unknown-model")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

func TestValidateConfigOK(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "stub", configured: true, models: []Model{{Name: "known"}}})
	assert.NoError(t, r.ValidateConfig("stub", "known"))
	assert.NoError(t, r.ValidateConfig("stub", ""))
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "b"})
	r.Register(&stubProvider{name: "a"})
	r.Register(&stubProvider{name: "b"}) // re-register doesn't duplicate order

	got := r.List()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name())
	assert.Equal(t, "a", got[1].Name())
}
