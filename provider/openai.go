package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
)

// OpenAIProvider translates via OpenAI chat completions. Batches are sent
// as a JSON array and returned as a JSON object with a "translations" key,
// which keeps ordering explicit in the prompt contract.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.2)
	BaseURL     string  // Custom base URL (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string { return "openai" }

// TranslateBatch translates texts in submission order.
func (p *OpenAIProvider) TranslateBatch(ctx context.Context, texts []string, sourceLocale, targetLocale string) ([]Result, error) {
	if len(texts) == 0 {
		return []Result{}, nil
	}

	payload, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.systemPrompt(sourceLocale, targetLocale)},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &loctool.TransientError{Provider: "openai", Message: "empty completion"}
	}

	translations, err := parseTranslations(resp.Choices[0].Message.Content, len(texts))
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(translations))
	for i, text := range translations {
		results[i] = Result{Text: text, Method: p.Name()}
	}
	return results, nil
}

func (p *OpenAIProvider) systemPrompt(sourceLocale, targetLocale string) string {
	source := loctool.LanguageName(sourceLocale)
	target := loctool.LanguageName(targetLocale)

	return fmt.Sprintf(`You are a professional software localizer. Translate user interface
strings of a Confluence plugin from %s to %s.

Rules:
- Keep translations short and idiomatic for UI labels, buttons and messages.
- Do NOT translate placeholders such as {0}, {name} or {dateTime}. Keep them
  byte for byte as they appear in the source.
- Do NOT translate HTML tags, attributes, URLs or product names.
- Preserve leading and trailing whitespace of every string.

Return a valid JSON object with a single key "translations" containing an
array of strings in the exact same order as the input array.
Example: {"translations": ["first", "second"]}
Do NOT wrap the output in Markdown code blocks.`, source, target)
}

func parseTranslations(content string, expectedCount int) ([]string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		if raw, ok := obj["translations"]; ok {
			return decodeStringArray(raw, expectedCount)
		}
		// Fallback: first array-valued key.
		for _, raw := range obj {
			if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
				return decodeStringArray(raw, expectedCount)
			}
		}
	}

	// Some models return a bare array despite the instruction.
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "[") {
		return decodeStringArray(json.RawMessage(trimmed), expectedCount)
	}

	return nil, &loctool.TransientError{
		Provider: "openai",
		Message:  "unparseable completion: " + trimBody([]byte(content)),
	}
}

func decodeStringArray(raw json.RawMessage, expectedCount int) ([]string, error) {
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &loctool.TransientError{Provider: "openai", Message: "invalid translations array", Cause: err}
	}
	if len(out) != expectedCount {
		return nil, &loctool.CountMismatchError{Expected: expectedCount, Got: len(out)}
	}
	return out, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return &loctool.AuthError{Provider: "openai", Message: apiErr.Message, Cause: err}
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &loctool.RateLimitError{Provider: "openai", Message: apiErr.Message, Cause: err}
		case apiErr.HTTPStatusCode >= 500:
			return &loctool.TransientError{Provider: "openai", Message: apiErr.Message, Cause: err}
		default:
			return &loctool.AuthError{Provider: "openai", Message: apiErr.Message, Cause: err}
		}
	}
	// Network-level failures are worth a retry.
	return &loctool.TransientError{Provider: "openai", Message: "request failed", Cause: err}
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
