package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
)

const googleTranslateURL = "https://translation.googleapis.com/language/translate/v2"

// GoogleProvider translates via the Google Cloud Translation v2 REST API.
// Google has no placeholder-ignore facility, so placeholders are protected
// with inert tags and the request is sent in HTML format, which Google
// passes tags through untranslated.
type GoogleProvider struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// GoogleConfig holds configuration for the Google provider.
type GoogleConfig struct {
	APIKey     string        // Cloud Translation API key
	BaseURL    string        // Custom endpoint (optional, for tests)
	Timeout    time.Duration // HTTP timeout (default: 60s)
	HTTPClient *http.Client  // Custom client (optional)
}

// NewGoogleProvider creates a new Google Cloud Translation provider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = googleTranslateURL
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &GoogleProvider{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		httpClient: client,
	}
}

// Name returns "google".
func (p *GoogleProvider) Name() string { return "google" }

type googleRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
}

type googleResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// TranslateBatch translates texts in submission order.
func (p *GoogleProvider) TranslateBatch(ctx context.Context, texts []string, sourceLocale, targetLocale string) ([]Result, error) {
	if len(texts) == 0 {
		return []Result{}, nil
	}

	protected := make([]string, len(texts))
	tokens := make([]map[string]string, len(texts))
	tagged := false
	for i, text := range texts {
		protected[i], tokens[i] = loctool.ProtectPlaceholders(text)
		if tokens[i] != nil || loctool.HasMarkup(text) {
			tagged = true
		}
	}

	format := "text"
	if tagged {
		format = "html"
	}

	reqBody := googleRequest{
		Q:      protected,
		Source: loctool.GoogleCode(sourceLocale),
		Target: loctool.GoogleCode(targetLocale),
		Format: format,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("google: encode request: %w", err)
	}

	endpoint := p.endpoint + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("google: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", loctool.UserAgent())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &loctool.TransientError{Provider: "google", Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if err := p.classifyStatus(resp, body); err != nil {
		return nil, err
	}

	var decoded googleResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &loctool.TransientError{Provider: "google", Message: "invalid response body", Cause: err}
	}

	translations := decoded.Data.Translations
	if len(translations) != len(texts) {
		return nil, &loctool.CountMismatchError{Expected: len(texts), Got: len(translations)}
	}

	results := make([]Result, len(texts))
	for i, tr := range translations {
		results[i] = Result{
			Text:   loctool.RestorePlaceholders(tr.TranslatedText, tokens[i]),
			Method: p.Name(),
		}
	}
	return results, nil
}

func (p *GoogleProvider) classifyStatus(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil

	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return &loctool.AuthError{Provider: "google", Message: trimBody(body)}

	// Google reports quota exhaustion as 403 with rateLimitExceeded /
	// dailyLimitExceeded reasons; both back off like a 429.
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return &loctool.RateLimitError{
			Provider:   "google",
			Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, trimBody(body)),
			RetryAfter: retryAfterHint(resp),
		}

	case resp.StatusCode >= 500:
		return &loctool.TransientError{
			Provider: "google",
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, trimBody(body)),
		}

	default:
		return &loctool.AuthError{
			Provider: "google",
			Message:  fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, trimBody(body)),
		}
	}
}

// Verify GoogleProvider implements Provider
var _ Provider = (*GoogleProvider)(nil)
