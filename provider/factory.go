package provider

import (
	"fmt"
	"net/http"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
)

// Options selects and configures a concrete provider.
type Options struct {
	Service     string // "deepl", "google", "openai", "mock" or "" for auto
	DeepLKey    string
	GoogleKey   string
	OpenAIKey   string
	OpenAIModel string
	HTTPClient  *http.Client // Custom client for REST providers (optional)
}

// FromOptions builds a provider from the given options. When Service is
// empty, the first configured key wins in the order DeepL, Google, OpenAI.
func FromOptions(opts Options) (Provider, error) {
	switch opts.Service {
	case "deepl":
		if opts.DeepLKey == "" {
			return nil, &loctool.AuthError{Provider: "deepl", Message: "missing API key"}
		}
		return NewDeepLProvider(DeepLConfig{APIKey: opts.DeepLKey, HTTPClient: opts.HTTPClient}), nil

	case "google":
		if opts.GoogleKey == "" {
			return nil, &loctool.AuthError{Provider: "google", Message: "missing API key"}
		}
		return NewGoogleProvider(GoogleConfig{APIKey: opts.GoogleKey, HTTPClient: opts.HTTPClient}), nil

	case "openai":
		if opts.OpenAIKey == "" {
			return nil, &loctool.AuthError{Provider: "openai", Message: "missing API key"}
		}
		return NewOpenAIProvider(OpenAIConfig{APIKey: opts.OpenAIKey, Model: opts.OpenAIModel}), nil

	case "mock":
		return NewMockProvider(), nil

	case "":
		switch {
		case opts.DeepLKey != "":
			return NewDeepLProvider(DeepLConfig{APIKey: opts.DeepLKey, HTTPClient: opts.HTTPClient}), nil
		case opts.GoogleKey != "":
			return NewGoogleProvider(GoogleConfig{APIKey: opts.GoogleKey, HTTPClient: opts.HTTPClient}), nil
		case opts.OpenAIKey != "":
			return NewOpenAIProvider(OpenAIConfig{APIKey: opts.OpenAIKey, Model: opts.OpenAIModel}), nil
		default:
			return nil, &loctool.AuthError{Provider: "auto", Message: "no translation service configured"}
		}

	default:
		return nil, fmt.Errorf("unknown translation service %q", opts.Service)
	}
}
