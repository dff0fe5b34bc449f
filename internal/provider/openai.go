package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAIProvider adapts the OpenAI chat completions API to Provider. It also
// backs any OpenAI-compatible provider (Groq, Fireworks, Mistral) by pointing
// BaseURL at that vendor's endpoint — the same option.WithBaseURL override
// the teacher's common/llm package uses for self-hosted/alternate endpoints.
type openAIProvider struct {
	name        string
	displayName string
	client      openai.Client
	apiKey      string
	models      []Model
	pricing     map[string]ModelPricing
}

// NewOpenAI builds the canonical OpenAI provider.
func NewOpenAI(apiKey string) Provider {
	return newOpenAICompatible("openai", "OpenAI", apiKey, "", openAIModels(), openAIPricing())
}

// NewGroq builds a Groq provider using the OpenAI-compatible endpoint.
func NewGroq(apiKey string) Provider {
	return newOpenAICompatible("groq", "Groq", apiKey, "https://api.groq.com/openai/v1", groqModels(), groqPricing())
}

// NewFireworks builds a Fireworks AI provider using the OpenAI-compatible endpoint.
func NewFireworks(apiKey string) Provider {
	return newOpenAICompatible("fireworks", "Fireworks AI", apiKey, "https://api.fireworks.ai/inference/v1", fireworksModels(), fireworksPricing())
}

// NewMistral builds a Mistral provider using the OpenAI-compatible endpoint.
func NewMistral(apiKey string) Provider {
	return newOpenAICompatible("mistral", "Mistral", apiKey, "https://api.mistral.ai/v1", mistralModels(), mistralPricing())
}

// NewZAI builds a Z.ai (GLM) provider using its OpenAI-compatible endpoint.
func NewZAI(apiKey string) Provider {
	return newOpenAICompatible("zai", "Z.ai", apiKey, "https://api.z.ai/api/paas/v4", zaiModels(), zaiPricing())
}

func newOpenAICompatible(name, displayName, apiKey, baseURL string, models []Model, pricing map[string]ModelPricing) Provider {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIProvider{
		name:        name,
		displayName: displayName,
		client:      openai.NewClient(opts...),
		apiKey:      apiKey,
		models:      models,
		pricing:     pricing,
	}
}

func (p *openAIProvider) Name() string        { return p.name }
func (p *openAIProvider) DisplayName() string { return p.displayName }
func (p *openAIProvider) IsConfigured() bool  { return p.apiKey != "" }

func (p *openAIProvider) AvailableModels() []Model { return p.models }

func (p *openAIProvider) ValidateModel(name string) bool {
	for _, m := range p.models {
		if m.Name == name {
			return true
		}
	}
	return false
}

func (p *openAIProvider) FallbackPricing() map[string]ModelPricing { return p.pricing }

func (p *openAIProvider) Call(ctx context.Context, messages []Message, model string, opts CallOptions) (ProviderResponse, error) {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	params := openai.ChatCompletionNewParams{
		Model:               model,
		Messages:            convertMessagesOpenAI(messages),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if opts.Temperature != 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if IsRetryable(ctx, err) {
			return ProviderResponse{}, NewRetryableError(fmt.Errorf("%s: %w", p.name, err))
		}
		return ProviderResponse{}, NewPermanentError(fmt.Errorf("%s: %w", p.name, err))
	}
	if len(resp.Choices) == 0 {
		return ProviderResponse{}, NewPermanentError(fmt.Errorf("%s: no choices in response", p.name))
	}

	choice := resp.Choices[0]
	return ProviderResponse{
		Content:      choice.Message.Content,
		Model:        model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		FinishReason: string(choice.FinishReason),
	}, nil
}

func convertMessagesOpenAI(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			result = append(result, openai.SystemMessage(m.Content))
		case "assistant":
			result = append(result, openai.AssistantMessage(m.Content))
		default:
			result = append(result, openai.UserMessage(m.Content))
		}
	}
	return result
}

func openAIModels() []Model {
	return []Model{
		{Name: "gpt-5-codex", DisplayName: "GPT-5 Codex", ContextWindow: 272000, SupportsStreaming: true},
		{Name: "gpt-5", DisplayName: "GPT-5", ContextWindow: 272000, SupportsVision: true, SupportsStreaming: true},
		{Name: "gpt-4o", DisplayName: "GPT-4o", ContextWindow: 128000, SupportsVision: true, SupportsStreaming: true},
	}
}

func openAIPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"gpt-5-codex": {Provider: "openai", Model: "gpt-5-codex", InputCostPer1M: 3.0, OutputCostPer1M: 15.0, ContextWindow: 272000},
		"gpt-5":       {Provider: "openai", Model: "gpt-5", InputCostPer1M: 5.0, OutputCostPer1M: 15.0, ContextWindow: 272000},
		"gpt-4o":      {Provider: "openai", Model: "gpt-4o", InputCostPer1M: 2.5, OutputCostPer1M: 10.0, ContextWindow: 128000},
	}
}

func groqModels() []Model {
	return []Model{
		{Name: "llama-3.3-70b-versatile", DisplayName: "Llama 3.3 70B Versatile", ContextWindow: 128000, SupportsStreaming: true},
		{Name: "mixtral-8x7b-32768", DisplayName: "Mixtral 8x7B", ContextWindow: 32768, SupportsStreaming: true},
	}
}

func groqPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"llama-3.3-70b-versatile": {Provider: "groq", Model: "llama-3.3-70b-versatile", InputCostPer1M: 0.59, OutputCostPer1M: 0.79, ContextWindow: 128000},
		"mixtral-8x7b-32768":      {Provider: "groq", Model: "mixtral-8x7b-32768", InputCostPer1M: 0.24, OutputCostPer1M: 0.24, ContextWindow: 32768},
	}
}

func fireworksModels() []Model {
	return []Model{
		{Name: "accounts/fireworks/models/llama-v3p1-70b-instruct", DisplayName: "Llama 3.1 70B Instruct", ContextWindow: 131072, SupportsStreaming: true},
	}
}

func fireworksPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"accounts/fireworks/models/llama-v3p1-70b-instruct": {Provider: "fireworks", Model: "accounts/fireworks/models/llama-v3p1-70b-instruct", InputCostPer1M: 0.9, OutputCostPer1M: 0.9, ContextWindow: 131072},
	}
}

func mistralModels() []Model {
	return []Model{
		{Name: "mistral-large-latest", DisplayName: "Mistral Large", ContextWindow: 128000, SupportsStreaming: true},
		{Name: "codestral-latest", DisplayName: "Codestral", ContextWindow: 256000, SupportsStreaming: true},
	}
}

func mistralPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"mistral-large-latest": {Provider: "mistral", Model: "mistral-large-latest", InputCostPer1M: 2.0, OutputCostPer1M: 6.0, ContextWindow: 128000},
		"codestral-latest":     {Provider: "mistral", Model: "codestral-latest", InputCostPer1M: 0.3, OutputCostPer1M: 0.9, ContextWindow: 256000},
	}
}

func zaiModels() []Model {
	return []Model{
		{Name: "glm-4.6", DisplayName: "GLM-4.6", ContextWindow: 200000, SupportsStreaming: true},
	}
}

func zaiPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"glm-4.6": {Provider: "zai", Model: "glm-4.6", InputCostPer1M: 0.6, OutputCostPer1M: 2.2, ContextWindow: 200000},
	}
}
