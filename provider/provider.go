// Package provider implements translation back-ends behind one interface.
//
// Concrete providers: DeepL (native markup-safe tag handling), Google Cloud
// Translation v2 (placeholder protection via inert tags), and OpenAI chat
// completion. Selection between them is a construction-time decision (see
// FromOptions); the translation engine never branches on the provider kind.
package provider

import "context"

// Result is one translated text with the method that produced it.
type Result struct {
	Text   string
	Method string
}

// Provider is the uniform surface over translation back-ends.
//
// TranslateBatch preserves input ordering 1:1: result i is the translation
// of texts[i]. Placeholder tokens of the form {N} embedded in source text
// survive translation unchanged. Implementations return AuthError,
// RateLimitError or TransientError from the root package so callers can
// classify failures without knowing the back-end.
type Provider interface {
	Name() string
	TranslateBatch(ctx context.Context, texts []string, sourceLocale, targetLocale string) ([]Result, error)
}
