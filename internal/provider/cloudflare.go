package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// cloudflareProvider calls Cloudflare Workers AI directly over net/http.
// Unlike every other provider here, no SDK for this API exists anywhere in
// the retrieved pack and its request/response shape is neither OpenAI- nor
// Anthropic-compatible, so this is the one provider built on the standard
// library rather than a third-party client (see DESIGN.md).
type cloudflareProvider struct {
	apiKey    string
	accountID string
	client    *http.Client
}

// NewCloudflare builds the Cloudflare Workers AI provider.
func NewCloudflare(apiKey, accountID string) Provider {
	return &cloudflareProvider{
		apiKey:    apiKey,
		accountID: accountID,
		client:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (p *cloudflareProvider) Name() string        { return "cloudflare" }
func (p *cloudflareProvider) DisplayName() string { return "Cloudflare Workers AI" }
func (p *cloudflareProvider) IsConfigured() bool  { return p.apiKey != "" && p.accountID != "" }

func (p *cloudflareProvider) AvailableModels() []Model {
	return []Model{
		{Name: "@cf/meta/llama-3.3-70b-instruct-fp8-fast", DisplayName: "Llama 3.3 70B Instruct (fp8)", ContextWindow: 24000},
	}
}

func (p *cloudflareProvider) ValidateModel(name string) bool {
	for _, m := range p.AvailableModels() {
		if m.Name == name {
			return true
		}
	}
	return false
}

func (p *cloudflareProvider) FallbackPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"@cf/meta/llama-3.3-70b-instruct-fp8-fast": {
			Provider: "cloudflare", Model: "@cf/meta/llama-3.3-70b-instruct-fp8-fast",
			InputCostPer1M: 0.29, OutputCostPer1M: 2.25, ContextWindow: 24000,
		},
	}
}

type cfMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cfRequest struct {
	Messages    []cfMessage `json:"messages"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
}

type cfResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Response string `json:"response"`
	} `json:"result"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (p *cloudflareProvider) Call(ctx context.Context, messages []Message, model string, opts CallOptions) (ProviderResponse, error) {
	cfMessages := make([]cfMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != "system" && role != "assistant" {
			role = "user"
		}
		cfMessages = append(cfMessages, cfMessage{Role: role, Content: m.Content})
	}

	body, err := json.Marshal(cfRequest{Messages: cfMessages, MaxTokens: opts.MaxTokens, Temperature: opts.Temperature})
	if err != nil {
		return ProviderResponse{}, NewPermanentError(fmt.Errorf("cloudflare: encoding request: %w", err))
	}

	url := fmt.Sprintf("https://api.cloudflare.com/client/v4/accounts/%s/ai/run/%s", p.accountID, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ProviderResponse{}, NewPermanentError(fmt.Errorf("cloudflare: building request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return ProviderResponse{}, NewRetryableError(fmt.Errorf("cloudflare: request failed: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return ProviderResponse{}, NewRetryableError(fmt.Errorf("cloudflare: reading response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return ProviderResponse{}, NewRetryableError(fmt.Errorf("cloudflare: status %d: %s", resp.StatusCode, payload))
	}
	if resp.StatusCode >= 400 {
		return ProviderResponse{}, NewPermanentError(fmt.Errorf("cloudflare: status %d: %s", resp.StatusCode, payload))
	}

	var decoded cfResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return ProviderResponse{}, NewPermanentError(fmt.Errorf("cloudflare: decoding response: %w", err))
	}
	if !decoded.Success {
		msg := "unknown error"
		if len(decoded.Errors) > 0 {
			msg = decoded.Errors[0].Message
		}
		return ProviderResponse{}, NewPermanentError(fmt.Errorf("cloudflare: %s", msg))
	}

	// Workers AI doesn't report token usage; estimate at ~4 chars/token,
	// the same heuristic internal/contextmgr uses for pre-call budgeting.
	return ProviderResponse{
		Content:      decoded.Result.Response,
		Model:        model,
		InputTokens:  estimateTokens(cfMessages),
		OutputTokens: len(decoded.Result.Response) / 4,
		FinishReason: "stop",
	}, nil
}

func estimateTokens(messages []cfMessage) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total
}
