package loctool

import (
	stdhtml "html"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Confluence UI strings embed MessageFormat-style placeholders: {0}, {1},
// but also named forms like {page} or {task}. Providers without native tag
// handling would translate or reorder them, so they are swapped for inert
// <ph id="..."/> tags before the call and restored after.

var placeholderPattern = regexp.MustCompile(`\{([^}]+)\}`)

// HasPlaceholders reports whether text contains {…} placeholder tokens.
func HasPlaceholders(text string) bool {
	return placeholderPattern.MatchString(text)
}

// HasMarkup reports whether text contains HTML elements. Detection runs the
// tokenizer rather than a regexp so stray "<" comparisons in plain text do
// not count as markup.
func HasMarkup(text string) bool {
	if !strings.ContainsRune(text, '<') {
		return false
	}
	tok := html.NewTokenizer(strings.NewReader(text))
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			return true
		}
	}
}

// ProtectPlaceholders replaces every {…} token with an inert <ph id="…"/>
// tag and returns the rewritten text plus the id → original token mapping
// needed to reverse the substitution.
func ProtectPlaceholders(text string) (string, map[string]string) {
	if !HasPlaceholders(text) {
		return text, nil
	}

	tokens := make(map[string]string)
	pos := 0
	protected := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		content := match[1 : len(match)-1]
		id := placeholderID(content)
		// Sanitizing can map distinct contents to the same id ({a.b} and
		// {a b} both become a_b); disambiguate by match position.
		if existing, ok := tokens[id]; ok && existing != match {
			id = id + "_" + strconv.Itoa(pos)
		}
		tokens[id] = match
		pos++
		return `<ph id="` + id + `"/>`
	})

	return protected, tokens
}

// RestorePlaceholders reverses ProtectPlaceholders on provider output.
// Providers mangle the inert tags freely: self-closing becomes paired,
// attributes get reordered or requoted. The text is parsed as HTML and
// each ph element is replaced by its original token, instead of trusting a
// byte-for-byte match.
func RestorePlaceholders(text string, tokens map[string]string) string {
	if len(tokens) == 0 {
		return text
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return restorePlaceholdersRaw(text, tokens)
	}

	doc.Find("ph").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("id")
		if !ok {
			return
		}
		if original, ok := tokens[id]; ok {
			s.ReplaceWithHtml(stdhtml.EscapeString(original))
		}
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		return restorePlaceholdersRaw(text, tokens)
	}

	restored, err := body.Html()
	if err != nil {
		return restorePlaceholdersRaw(text, tokens)
	}

	// Html() entity-escapes text content; undo it so properties values keep
	// literal characters.
	return stdhtml.UnescapeString(restored)
}

// restorePlaceholdersRaw is the fallback string replacement used when the
// output cannot be parsed as HTML.
func restorePlaceholdersRaw(text string, tokens map[string]string) string {
	for id, original := range tokens {
		text = strings.ReplaceAll(text, `<ph id="`+id+`"/>`, original)
		text = strings.ReplaceAll(text, `<ph id="`+id+`">`+`</ph>`, original)
	}
	return text
}

// placeholderID derives a tag-safe id from placeholder content.
func placeholderID(content string) string {
	id := strings.ReplaceAll(content, " ", "_")
	id = strings.ReplaceAll(id, ".", "_")
	id = strings.ReplaceAll(id, `"`, "_")
	return id
}
