package provider

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
)

func TestParseTranslations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		count   int
		want    []string
		wantErr bool
	}{
		{
			name:    "translations object",
			content: `{"translations": ["Привет", "Мир"]}`,
			count:   2,
			want:    []string{"Привет", "Мир"},
		},
		{
			name:    "bare array fallback",
			content: `["Привет"]`,
			count:   1,
			want:    []string{"Привет"},
		},
		{
			name:    "other array key",
			content: `{"results": ["Привет"]}`,
			count:   1,
			want:    []string{"Привет"},
		},
		{
			name:    "count mismatch",
			content: `{"translations": ["Привет"]}`,
			count:   2,
			wantErr: true,
		},
		{
			name:    "not json",
			content: `Sure! Here are your translations:`,
			count:   1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTranslations(tt.content, tt.count)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTranslations() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d translations, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestClassifyOpenAIError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		rateLimit bool
		auth      bool
	}{
		{
			name: "unauthorized",
			err:  &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"},
			auth: true,
		},
		{
			name:      "rate limited",
			err:       &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"},
			rateLimit: true,
		},
		{
			name: "server error retryable",
			err:  &openai.APIError{HTTPStatusCode: http.StatusBadGateway, Message: "upstream"},
		},
		{
			name: "network error retryable",
			err:  errors.New("dial tcp: connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyOpenAIError(tt.err)

			var rlErr *loctool.RateLimitError
			if is := errors.As(got, &rlErr); is != tt.rateLimit {
				t.Errorf("RateLimitError = %v, want %v", is, tt.rateLimit)
			}
			var authErr *loctool.AuthError
			if is := errors.As(got, &authErr); is != tt.auth {
				t.Errorf("AuthError = %v, want %v", is, tt.auth)
			}
			if tt.auth && loctool.IsRetryable(got) {
				t.Error("auth errors must not be retryable")
			}
			if !tt.auth && !loctool.IsRetryable(got) {
				t.Errorf("expected retryable, got %v", got)
			}
		})
	}
}

func TestOpenAIProvider_SystemPrompt(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key"})

	prompt := p.systemPrompt("en", "ru_RU")
	if !strings.Contains(prompt, "Russian") {
		t.Errorf("prompt should name the target language:\n%s", prompt)
	}
	if !strings.Contains(prompt, "translations") {
		t.Errorf("prompt should pin the response key:\n%s", prompt)
	}
}

func TestOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key"})
	if p.model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", p.model)
	}
	if p.temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", p.temperature)
	}
}
