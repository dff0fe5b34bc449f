package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicProvider struct {
	client anthropic.Client
	apiKey string
}

// NewAnthropic builds the Anthropic Messages API provider.
func NewAnthropic(apiKey string) Provider {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &anthropicProvider{client: anthropic.NewClient(opts...), apiKey: apiKey}
}

func (p *anthropicProvider) Name() string        { return "anthropic" }
func (p *anthropicProvider) DisplayName() string { return "Anthropic" }
func (p *anthropicProvider) IsConfigured() bool  { return p.apiKey != "" }

func (p *anthropicProvider) AvailableModels() []Model {
	return []Model{
		{Name: "claude-opus-4-5", DisplayName: "Claude Opus 4.5", ContextWindow: 200000, SupportsVision: true, SupportsStreaming: true},
		{Name: "claude-sonnet-4-5-20250514", DisplayName: "Claude Sonnet 4.5", ContextWindow: 200000, SupportsVision: true, SupportsStreaming: true},
		{Name: "claude-haiku-4-5", DisplayName: "Claude Haiku 4.5", ContextWindow: 200000, SupportsStreaming: true},
	}
}

func (p *anthropicProvider) ValidateModel(name string) bool {
	for _, m := range p.AvailableModels() {
		if m.Name == name {
			return true
		}
	}
	return false
}

func (p *anthropicProvider) FallbackPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"claude-opus-4-5":            {Provider: "anthropic", Model: "claude-opus-4-5", InputCostPer1M: 5.0, OutputCostPer1M: 25.0, ContextWindow: 200000},
		"claude-sonnet-4-5-20250514": {Provider: "anthropic", Model: "claude-sonnet-4-5-20250514", InputCostPer1M: 3.0, OutputCostPer1M: 15.0, ContextWindow: 200000},
		"claude-haiku-4-5":           {Provider: "anthropic", Model: "claude-haiku-4-5", InputCostPer1M: 0.8, OutputCostPer1M: 4.0, ContextWindow: 200000},
	}
}

func (p *anthropicProvider) Call(ctx context.Context, messages []Message, model string, opts CallOptions) (ProviderResponse, error) {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	system, converted := convertMessagesAnthropic(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  converted,
	}
	if len(system) > 0 {
		params.System = system
	}
	if opts.Temperature != 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		if isAnthropicRetryable(err) {
			return ProviderResponse{}, NewRetryableError(fmt.Errorf("anthropic: %w", err))
		}
		return ProviderResponse{}, NewPermanentError(fmt.Errorf("anthropic: %w", err))
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return ProviderResponse{
		Content:      content,
		Model:        model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		FinishReason: mapAnthropicStopReason(resp.StopReason),
	}, nil
}

func convertMessagesAnthropic(msgs []Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	converted := make([]anthropic.MessageParam, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{Type: "text", Text: m.Content})
		case "assistant":
			converted = append(converted, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
			})
		default:
			converted = append(converted, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
			})
		}
	}
	return system, converted
}

func mapAnthropicStopReason(reason anthropic.StopReason) string {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return "stop"
	case anthropic.StopReasonToolUse:
		return "tool_calls"
	case anthropic.StopReasonMaxTokens:
		return "length"
	default:
		return string(reason)
	}
}

func isAnthropicRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return true
}
