package loctool

import (
	"strings"
	"testing"
)

func TestHasPlaceholders(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Created by {0}", true},
		{"Page {page} in space {space}", true},
		{"No placeholders here", false},
		{"Unbalanced { brace", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := HasPlaceholders(tt.text); got != tt.want {
			t.Errorf("HasPlaceholders(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestHasMarkup(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Click <b>Save</b>", true},
		{"Line one<br/>line two", true},
		{"plain text", false},
		{"a < b and c > d", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := HasMarkup(tt.text); got != tt.want {
			t.Errorf("HasMarkup(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestProtectPlaceholders(t *testing.T) {
	protected, tokens := ProtectPlaceholders("Created by {0} on {dateTime}")

	if strings.Contains(protected, "{0}") || strings.Contains(protected, "{dateTime}") {
		t.Errorf("placeholders left raw: %q", protected)
	}
	if !strings.Contains(protected, `<ph id="0"/>`) {
		t.Errorf("missing ph tag for {0}: %q", protected)
	}
	if len(tokens) != 2 {
		t.Errorf("tokens = %v, want 2 entries", tokens)
	}
	if tokens["0"] != "{0}" || tokens["dateTime"] != "{dateTime}" {
		t.Errorf("tokens = %v", tokens)
	}
}

func TestProtectPlaceholders_CollidingContents(t *testing.T) {
	// {a.b} and {a b} both sanitize to a_b; each must keep its own token.
	protected, tokens := ProtectPlaceholders("first {a.b} then {a b}")

	if len(tokens) != 2 {
		t.Fatalf("tokens = %v, want 2 entries", tokens)
	}
	if tokens["a_b"] != "{a.b}" {
		t.Errorf("tokens[a_b] = %q, want {a.b}", tokens["a_b"])
	}

	if got := RestorePlaceholders(protected, tokens); got != "first {a.b} then {a b}" {
		t.Errorf("round trip = %q", got)
	}
}

func TestProtectPlaceholders_NoPlaceholders(t *testing.T) {
	protected, tokens := ProtectPlaceholders("plain text")
	if protected != "plain text" {
		t.Errorf("text changed: %q", protected)
	}
	if tokens != nil {
		t.Errorf("tokens = %v, want nil", tokens)
	}
}

func TestRestorePlaceholders(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "self-closing tag survives",
			output: `Создано <ph id="0"/>`,
			want:   "Создано {0}",
		},
		{
			name:   "paired tag after provider mangling",
			output: `Создано <ph id="0"></ph>`,
			want:   "Создано {0}",
		},
		{
			name:   "reordered tags",
			output: `<ph id="dateTime"/>: создано <ph id="0"/>`,
			want:   "{dateTime}: создано {0}",
		},
	}

	_, tokens := ProtectPlaceholders("Created by {0} on {dateTime}")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RestorePlaceholders(tt.output, tokens); got != tt.want {
				t.Errorf("RestorePlaceholders(%q) = %q, want %q", tt.output, got, tt.want)
			}
		})
	}
}

func TestRestorePlaceholders_NoTokens(t *testing.T) {
	if got := RestorePlaceholders("text", nil); got != "text" {
		t.Errorf("got %q", got)
	}
}

func TestProtectRestore_RoundTrip(t *testing.T) {
	texts := []string{
		"Created by {0}",
		"Page {page} moved to {space}",
		"{0} of {1} results",
		"No placeholders at all",
	}

	for _, text := range texts {
		protected, tokens := ProtectPlaceholders(text)
		if got := RestorePlaceholders(protected, tokens); got != text {
			t.Errorf("round trip of %q = %q", text, got)
		}
	}
}

func TestPlaceholderID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"dateTime", "dateTime"},
		{"user name", "user_name"},
		{"a.b.c", "a_b_c"},
	}

	for _, tt := range tests {
		if got := placeholderID(tt.in); got != tt.want {
			t.Errorf("placeholderID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
