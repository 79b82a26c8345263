package loctool

import "testing"

func TestGetLocaleInfo_Known(t *testing.T) {
	info := GetLocaleInfo("ru_RU")
	if info.Name != "Russian (Russia)" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.DeepL != "RU" || info.Google != "ru" {
		t.Errorf("codes = %q/%q, want RU/ru", info.DeepL, info.Google)
	}
}

func TestGetLocaleInfo_HyphenForm(t *testing.T) {
	info := GetLocaleInfo("ru-RU")
	if info.DeepL != "RU" {
		t.Errorf("hyphen form not normalized, DeepL = %q", info.DeepL)
	}
}

func TestGetLocaleInfo_DerivedFallback(t *testing.T) {
	info := GetLocaleInfo("cs_CZ")
	if info.Language != "cs" || info.Country != "CZ" {
		t.Errorf("derived = %q/%q, want cs/CZ", info.Language, info.Country)
	}
	if info.DeepL != "CS" || info.Google != "cs" {
		t.Errorf("derived codes = %q/%q", info.DeepL, info.Google)
	}
	if info.Name != "Cs (CZ)" {
		t.Errorf("derived name = %q", info.Name)
	}
}

func TestDeepLCode(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"ru_RU", "RU"},
		{"de_DE", "DE"},
		{"zh_CN", "ZH"},
		{"pt_BR", "PT"},
	}
	for _, tt := range tests {
		if got := DeepLCode(tt.locale); got != tt.want {
			t.Errorf("DeepLCode(%q) = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestGoogleCode(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"ru_RU", "ru"},
		{"zh_CN", "zh-CN"},
		{"zh_TW", "zh-TW"},
	}
	for _, tt := range tests {
		if got := GoogleCode(tt.locale); got != tt.want {
			t.Errorf("GoogleCode(%q) = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestNormalizeLocale(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ru-RU", "ru_RU"},
		{"ru_RU", "ru_RU"},
		{"  de-DE ", "de_DE"},
	}
	for _, tt := range tests {
		if got := NormalizeLocale(tt.in); got != tt.want {
			t.Errorf("NormalizeLocale(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToBCP47(t *testing.T) {
	if got := ToBCP47("ru_RU"); got != "ru-RU" {
		t.Errorf("ToBCP47 = %q, want ru-RU", got)
	}
}

func TestValidLocale(t *testing.T) {
	valid := []string{"ru_RU", "de-DE", "en", "zh_CN"}
	for _, locale := range valid {
		if !ValidLocale(locale) {
			t.Errorf("ValidLocale(%q) = false, want true", locale)
		}
	}

	invalid := []string{"", "   ", "not a locale!", "123456789"}
	for _, locale := range invalid {
		if ValidLocale(locale) {
			t.Errorf("ValidLocale(%q) = true, want false", locale)
		}
	}
}
