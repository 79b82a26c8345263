// Package confluence fetches plugin i18n key snapshots from a Confluence
// instance via the prototype REST resource.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
)

const i18nResource = "/rest/prototype/1/i18n.json"

// Client talks to one Confluence instance using bearer-token auth.
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	backoff     loctool.BackoffConfig
	sleep       loctool.SleepFunc
}

// Config holds configuration for the Confluence client.
type Config struct {
	BaseURL     string                 // Instance base URL (e.g., "https://wiki.example.com")
	BearerToken string                 // Personal access token
	Timeout     time.Duration          // HTTP timeout (default: 30s)
	HTTPClient  *http.Client           // Custom client (optional)
	Backoff     *loctool.BackoffConfig // Retry policy for transient failures (optional)
	Sleep       loctool.SleepFunc      // Retry sleep override, used by tests
}

// NewClient creates a Confluence client. BaseURL and BearerToken are
// required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("confluence: base URL required")
	}
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("confluence: bearer token required")
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	backoff := loctool.DefaultBackoffConfig()
	if cfg.Backoff != nil {
		backoff = *cfg.Backoff
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		bearerToken: cfg.BearerToken,
		httpClient:  client,
		backoff:     backoff,
		sleep:       cfg.Sleep,
	}, nil
}

// FetchKeys retrieves the i18n strings exposed by the given plugins as a
// flat key-to-text map. Confluence answers with the strings of all listed
// plugins merged into one object. Network errors and 5xx responses are
// retried with exponential backoff before giving up.
func (c *Client) FetchKeys(ctx context.Context, pluginKeys []string) (map[string]string, error) {
	if len(pluginKeys) == 0 {
		return nil, fmt.Errorf("confluence: at least one plugin key required")
	}

	return loctool.WithRetry(ctx, c.backoff, c.sleep, func() (map[string]string, error) {
		return c.fetchOnce(ctx, pluginKeys)
	})
}

func (c *Client) fetchOnce(ctx context.Context, pluginKeys []string) (map[string]string, error) {
	params := make([]string, len(pluginKeys))
	for i, key := range pluginKeys {
		params[i] = "pluginKeys=" + url.QueryEscape(key)
	}
	endpoint := c.baseURL + i18nResource + "?" + strings.Join(params, "&")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("confluence: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", loctool.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &loctool.TransientError{Provider: "confluence", Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<20))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &loctool.AuthError{Provider: "confluence", Message: fmt.Sprintf("status %d", resp.StatusCode)}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &loctool.TransientError{Provider: "confluence", Message: fmt.Sprintf("status %d: %s", resp.StatusCode, trimBody(body))}
	default:
		return nil, fmt.Errorf("confluence: unexpected status %d: %s", resp.StatusCode, trimBody(body))
	}

	var keys map[string]string
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, &loctool.ImportFormatError{Message: "confluence response is not a flat i18n object", Cause: err}
	}
	return keys, nil
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
