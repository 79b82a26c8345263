package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
)

// DeepL endpoints. Free-tier API keys carry the ":fx" suffix and must use
// the free host.
const (
	deeplPaidURL = "https://api.deepl.com/v2/translate"
	deeplFreeURL = "https://api-free.deepl.com/v2/translate"
)

// DeepLProvider translates via the DeepL REST API using native XML tag
// handling: placeholders are wrapped in <ph/> tags that DeepL is told to
// ignore, so they survive translation verbatim.
type DeepLProvider struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// DeepLConfig holds configuration for the DeepL provider.
type DeepLConfig struct {
	APIKey     string        // DeepL API key; ":fx" suffix selects the free endpoint
	BaseURL    string        // Custom endpoint (optional, for tests/proxies)
	Timeout    time.Duration // HTTP timeout (default: 60s)
	HTTPClient *http.Client  // Custom client (optional)
}

// NewDeepLProvider creates a new DeepL provider.
func NewDeepLProvider(cfg DeepLConfig) *DeepLProvider {
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = deeplPaidURL
		if strings.HasSuffix(cfg.APIKey, ":fx") {
			endpoint = deeplFreeURL
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &DeepLProvider{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		httpClient: client,
	}
}

// Name returns "deepl".
func (p *DeepLProvider) Name() string { return "deepl" }

type deeplRequest struct {
	Text               []string `json:"text"`
	SourceLang         string   `json:"source_lang,omitempty"`
	TargetLang         string   `json:"target_lang"`
	PreserveFormatting bool     `json:"preserve_formatting"`
	TagHandling        string   `json:"tag_handling,omitempty"`
	IgnoreTags         []string `json:"ignore_tags,omitempty"`
}

type deeplResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// TranslateBatch translates texts in submission order.
func (p *DeepLProvider) TranslateBatch(ctx context.Context, texts []string, sourceLocale, targetLocale string) ([]Result, error) {
	if len(texts) == 0 {
		return []Result{}, nil
	}

	// Swap {…} placeholders for inert <ph/> tags; DeepL leaves ignored tags
	// untouched, so the swap survives translation.
	protected := make([]string, len(texts))
	tokens := make([]map[string]string, len(texts))
	tagged := false
	for i, text := range texts {
		protected[i], tokens[i] = loctool.ProtectPlaceholders(text)
		if tokens[i] != nil || loctool.HasMarkup(text) {
			tagged = true
		}
	}

	reqBody := deeplRequest{
		Text:               protected,
		SourceLang:         loctool.DeepLCode(sourceLocale),
		TargetLang:         loctool.DeepLCode(targetLocale),
		PreserveFormatting: true,
	}
	if tagged {
		reqBody.TagHandling = "xml"
		reqBody.IgnoreTags = []string{"ph"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("deepl: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("deepl: build request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", loctool.UserAgent())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &loctool.TransientError{Provider: "deepl", Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if err := p.classifyStatus(resp, body); err != nil {
		return nil, err
	}

	var decoded deeplResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &loctool.TransientError{Provider: "deepl", Message: "invalid response body", Cause: err}
	}

	if len(decoded.Translations) != len(texts) {
		return nil, &loctool.CountMismatchError{Expected: len(texts), Got: len(decoded.Translations)}
	}

	results := make([]Result, len(texts))
	for i, tr := range decoded.Translations {
		results[i] = Result{
			Text:   loctool.RestorePlaceholders(tr.Text, tokens[i]),
			Method: p.Name(),
		}
	}
	return results, nil
}

func (p *DeepLProvider) classifyStatus(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &loctool.AuthError{Provider: "deepl", Message: trimBody(body)}

	case resp.StatusCode == 456:
		// Character quota reached: cannot self-resolve within a run.
		return &loctool.AuthError{Provider: "deepl", Message: "character quota exceeded"}

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 529:
		return &loctool.RateLimitError{
			Provider:   "deepl",
			Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, trimBody(body)),
			RetryAfter: retryAfterHint(resp),
		}

	case resp.StatusCode >= 500:
		return &loctool.TransientError{
			Provider: "deepl",
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, trimBody(body)),
		}

	default:
		return &loctool.AuthError{
			Provider: "deepl",
			Message:  fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, trimBody(body)),
		}
	}
}

// retryAfterHint parses the Retry-After header as whole seconds.
func retryAfterHint(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// Verify DeepLProvider implements Provider
var _ Provider = (*DeepLProvider)(nil)
