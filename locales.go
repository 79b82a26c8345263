package loctool

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultTargetLocale is used when no target language is configured.
const DefaultTargetLocale = "ru_RU"

// DefaultSourceLocale is the source language of Confluence plugin strings.
const DefaultSourceLocale = "en"

// LocaleInfo holds the per-API language codes for one locale.
type LocaleInfo struct {
	Name     string // Human-readable name, e.g. "Russian (Russia)"
	Language string // ISO 639-1 language code
	Country  string // ISO 3166-1 country code
	DeepL    string // DeepL target_lang code
	Google   string // Google Cloud Translation target code
}

// Locales maps locale codes to language names and per-API codes.
var Locales = map[string]LocaleInfo{
	"ru_RU": {Name: "Russian (Russia)", Language: "ru", Country: "RU", DeepL: "RU", Google: "ru"},
	"de_DE": {Name: "German (Germany)", Language: "de", Country: "DE", DeepL: "DE", Google: "de"},
	"fr_FR": {Name: "French (France)", Language: "fr", Country: "FR", DeepL: "FR", Google: "fr"},
	"es_ES": {Name: "Spanish (Spain)", Language: "es", Country: "ES", DeepL: "ES", Google: "es"},
	"it_IT": {Name: "Italian (Italy)", Language: "it", Country: "IT", DeepL: "IT", Google: "it"},
	"pt_BR": {Name: "Portuguese (Brazil)", Language: "pt", Country: "BR", DeepL: "PT", Google: "pt"},
	"ja_JP": {Name: "Japanese (Japan)", Language: "ja", Country: "JP", DeepL: "JA", Google: "ja"},
	"ko_KR": {Name: "Korean (Korea)", Language: "ko", Country: "KR", DeepL: "KO", Google: "ko"},
	"zh_CN": {Name: "Chinese (Simplified)", Language: "zh", Country: "CN", DeepL: "ZH", Google: "zh-CN"},
	"zh_TW": {Name: "Chinese (Traditional)", Language: "zh", Country: "TW", DeepL: "ZH", Google: "zh-TW"},
	"pl_PL": {Name: "Polish (Poland)", Language: "pl", Country: "PL", DeepL: "PL", Google: "pl"},
	"nl_NL": {Name: "Dutch (Netherlands)", Language: "nl", Country: "NL", DeepL: "NL", Google: "nl"},
	"sv_SE": {Name: "Swedish (Sweden)", Language: "sv", Country: "SE", DeepL: "SV", Google: "sv"},
	"fi_FI": {Name: "Finnish (Finland)", Language: "fi", Country: "FI", DeepL: "FI", Google: "fi"},
	"uk_UA": {Name: "Ukrainian (Ukraine)", Language: "uk", Country: "UA", DeepL: "UK", Google: "uk"},
}

// GetLocaleInfo returns the locale info for a code such as "ru_RU".
// Unknown codes get a derived fallback: language from the first segment,
// country from the second (or the language uppercased).
func GetLocaleInfo(locale string) LocaleInfo {
	locale = NormalizeLocale(locale)
	if info, ok := Locales[locale]; ok {
		return info
	}

	parts := strings.Split(locale, "_")
	lang := strings.ToLower(parts[0])
	country := strings.ToUpper(lang)
	if len(parts) > 1 {
		country = strings.ToUpper(parts[1])
	}

	name := lang
	if len(name) > 0 {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	name += " (" + country + ")"
	return LocaleInfo{
		Name:     name,
		Language: lang,
		Country:  country,
		DeepL:    strings.ToUpper(lang),
		Google:   lang,
	}
}

// DeepLCode returns the DeepL target language code for a locale
// (e.g. "RU" for "ru_RU").
func DeepLCode(locale string) string {
	return GetLocaleInfo(locale).DeepL
}

// GoogleCode returns the Google Cloud Translation target code for a locale
// (e.g. "ru" for "ru_RU").
func GoogleCode(locale string) string {
	return GetLocaleInfo(locale).Google
}

// LanguageName returns the human-readable name for a locale, falling back
// to the code itself for unknown locales with no parsable structure.
func LanguageName(locale string) string {
	return GetLocaleInfo(locale).Name
}

// NormalizeLocale converts a locale code to the canonical underscore form
// (e.g. "ru-RU" → "ru_RU").
func NormalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.TrimSpace(locale), "-", "_")
}

// ToBCP47 converts a locale code to BCP 47 hyphen form (e.g. "ru_RU" →
// "ru-RU"), the form Jira uses in properties filenames.
func ToBCP47(locale string) string {
	return strings.ReplaceAll(NormalizeLocale(locale), "_", "-")
}

// ValidLocale reports whether the code parses as a well-formed language
// tag. It does not require the locale to be in the Locales table.
func ValidLocale(locale string) bool {
	if strings.TrimSpace(locale) == "" {
		return false
	}
	_, err := language.Parse(ToBCP47(locale))
	return err == nil
}
