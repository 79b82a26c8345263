package provider

import (
	"context"
	"fmt"
)

// MockProvider is a canned provider for testing and dry runs.
type MockProvider struct {
	Translations map[string]string // Map of source text to translation
	Err          error             // If set, every call fails with this error
	CallCount    int               // Number of times TranslateBatch was called
	LastTexts    []string          // Texts of the last batch received
	LastTarget   string            // Target locale of the last batch
}

// NewMockProvider creates a new mock provider with default translations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{
			"Hello":        "Привет",
			"Save":         "Сохранить",
			"Cancel":       "Отмена",
			"Hello World":  "Привет, мир",
			"Page created": "Страница создана",
		},
	}
}

// Name returns "mock".
func (m *MockProvider) Name() string { return "mock" }

// TranslateBatch returns canned translations, bracketing unknown texts.
func (m *MockProvider) TranslateBatch(ctx context.Context, texts []string, sourceLocale, targetLocale string) ([]Result, error) {
	m.CallCount++
	m.LastTexts = append([]string(nil), texts...)
	m.LastTarget = targetLocale

	if m.Err != nil {
		return nil, m.Err
	}

	results := make([]Result, len(texts))
	for i, text := range texts {
		translated, ok := m.Translations[text]
		if !ok {
			translated = fmt.Sprintf("[%s]", text)
		}
		results[i] = Result{Text: translated, Method: m.Name()}
	}
	return results, nil
}

// Reset clears the recorded calls.
func (m *MockProvider) Reset() {
	m.CallCount = 0
	m.LastTexts = nil
	m.LastTarget = ""
}

// Verify MockProvider implements Provider
var _ Provider = (*MockProvider)(nil)
