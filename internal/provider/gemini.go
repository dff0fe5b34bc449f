package provider

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// geminiProvider adapts Google's Gemini API. Client construction follows the
// same genai.NewClient(ctx, &genai.ClientConfig{APIKey}) shape the pack's
// embedding engine uses for Models.EmbedContent; here we drive
// Models.GenerateContent instead.
type geminiProvider struct {
	client *genai.Client
	apiKey string
}

// NewGemini builds the Gemini provider. Client construction is deferred
// until first Call so a missing API key doesn't fail registry startup.
func NewGemini(apiKey string) Provider {
	return &geminiProvider{apiKey: apiKey}
}

func (p *geminiProvider) Name() string        { return "gemini" }
func (p *geminiProvider) DisplayName() string { return "Google Gemini" }
func (p *geminiProvider) IsConfigured() bool  { return p.apiKey != "" }

func (p *geminiProvider) AvailableModels() []Model {
	return []Model{
		{Name: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro", ContextWindow: 2000000, SupportsVision: true, SupportsStreaming: true},
		{Name: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash", ContextWindow: 1000000, SupportsVision: true, SupportsStreaming: true},
	}
}

func (p *geminiProvider) ValidateModel(name string) bool {
	for _, m := range p.AvailableModels() {
		if m.Name == name {
			return true
		}
	}
	return false
}

func (p *geminiProvider) FallbackPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"gemini-2.5-pro":   {Provider: "gemini", Model: "gemini-2.5-pro", InputCostPer1M: 1.25, OutputCostPer1M: 10.0, ContextWindow: 2000000},
		"gemini-2.5-flash": {Provider: "gemini", Model: "gemini-2.5-flash", InputCostPer1M: 0.3, OutputCostPer1M: 2.5, ContextWindow: 1000000},
	}
}

func (p *geminiProvider) ensureClient(ctx context.Context) error {
	if p.client != nil {
		return nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.apiKey})
	if err != nil {
		return fmt.Errorf("gemini: creating client: %w", err)
	}
	p.client = client
	return nil
}

func (p *geminiProvider) Call(ctx context.Context, messages []Message, model string, opts CallOptions) (ProviderResponse, error) {
	if err := p.ensureClient(ctx); err != nil {
		return ProviderResponse{}, NewPermanentError(err)
	}

	contents, systemInstruction := convertMessagesGemini(messages)

	cfg := &genai.GenerateContentConfig{}
	if systemInstruction != nil {
		cfg.SystemInstruction = systemInstruction
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature != 0 {
		temp := float32(opts.Temperature)
		cfg.Temperature = &temp
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		if isGeminiRetryable(err) {
			return ProviderResponse{}, NewRetryableError(fmt.Errorf("gemini: %w", err))
		}
		return ProviderResponse{}, NewPermanentError(fmt.Errorf("gemini: %w", err))
	}

	return ProviderResponse{
		Content:      resp.Text(),
		Model:        model,
		InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		FinishReason: geminiFinishReason(resp),
	}, nil
}

func convertMessagesGemini(msgs []Message) ([]*genai.Content, *genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = genai.NewContentFromText(m.Content, genai.RoleUser)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, system
}

func geminiFinishReason(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return "stop"
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonMaxTokens:
		return "length"
	default:
		return "stop"
	}
}

func isGeminiRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return true
}
