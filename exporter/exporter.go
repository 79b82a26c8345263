// Package exporter writes translated groups as Java properties files for
// Confluence plugin bundles, or as flat JSON for round-tripping.
//
// Properties output follows the language bundle convention: keys sorted,
// non-ASCII escaped as uppercase \uXXXX sequences, one key=value per line.
// Every escaped value is decoded again and compared against the source
// before it is written, so a broken escape can never reach a bundle.
package exporter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/astrateam-net/confluence-localization-toolkit/store"
)

// Exporter reads translated rows from the store and renders them.
type Exporter struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option is a functional option for configuring the Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// New creates an Exporter on top of the given store.
func New(st *store.Store, opts ...Option) *Exporter {
	e := &Exporter{
		store:  st,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PropertiesOptions controls properties rendering.
type PropertiesOptions struct {
	Raw bool // Emit UTF-8 text instead of \uXXXX escapes
}

// WriteProperties writes the group's translated rows to w as a Java
// properties file and returns the number of keys written.
func (e *Exporter) WriteProperties(ctx context.Context, groupKey string, w io.Writer, opts PropertiesOptions) (int, error) {
	info, err := e.store.GetGroup(ctx, groupKey)
	if err != nil {
		return 0, err
	}

	rows, err := e.store.TranslatedRows(ctx, info.TableName)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Generated translation properties file\n")
	fmt.Fprintf(bw, "# Group: %s\n", groupKey)
	fmt.Fprintf(bw, "# Total keys: %d\n", len(rows))
	fmt.Fprintf(bw, "# Generated: %s\n\n", e.now().Format(time.RFC3339))

	for _, row := range rows {
		value := row.TranslatedText
		if !opts.Raw {
			escaped := Escape(value)
			if Unescape(escaped) != value {
				return 0, fmt.Errorf("escape verification failed for key %q", row.Key)
			}
			value = escaped
		} else {
			value = strings.ReplaceAll(value, `\`, `\\`)
		}
		value = strings.ReplaceAll(value, "\n", `\n`)

		fmt.Fprintf(bw, "%s=%s\n", escapeKey(row.Key), value)
	}

	if err := bw.Flush(); err != nil {
		return 0, err
	}

	e.logger.Info("properties export finished", "group", groupKey, "keys", len(rows))
	return len(rows), nil
}

// WriteJSON writes the group's translated rows to w as a flat JSON object
// of key to translated text.
func (e *Exporter) WriteJSON(ctx context.Context, groupKey string, w io.Writer) (int, error) {
	info, err := e.store.GetGroup(ctx, groupKey)
	if err != nil {
		return 0, err
	}

	rows, err := e.store.TranslatedRows(ctx, info.TableName)
	if err != nil {
		return 0, err
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.TranslatedText
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return 0, err
	}

	e.logger.Info("json export finished", "group", groupKey, "keys", len(rows))
	return len(rows), nil
}

// Escape converts all non-ASCII runes to uppercase \uXXXX escapes. Runes
// outside the BMP become UTF-16 surrogate pairs, the form Java properties
// files expect.
func Escape(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range text {
		if r <= 127 {
			b.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04X\u%04X`, hi, lo)
			continue
		}
		fmt.Fprintf(&b, `\u%04X`, r)
	}
	return b.String()
}

// Unescape decodes \uXXXX sequences back to text, combining surrogate
// pairs. Malformed sequences are left as-is.
func Unescape(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(text) {
		r, n, ok := decodeEscape(text[i:])
		if !ok {
			b.WriteByte(text[i])
			i++
			continue
		}

		if utf16.IsSurrogate(r) {
			if r2, n2, ok2 := decodeEscape(text[i+n:]); ok2 && utf16.IsSurrogate(r2) {
				if combined := utf16.DecodeRune(r, r2); combined != 0xFFFD {
					b.WriteRune(combined)
					i += n + n2
					continue
				}
			}
			// Unpaired surrogate, keep the raw sequence.
			b.WriteString(text[i : i+n])
			i += n
			continue
		}

		b.WriteRune(r)
		i += n
	}
	return b.String()
}

// decodeEscape reads one \uXXXX sequence from the start of s.
func decodeEscape(s string) (rune, int, bool) {
	if len(s) < 6 || s[0] != '\\' || s[1] != 'u' {
		return 0, 0, false
	}

	var code rune
	for _, c := range s[2:6] {
		var d rune
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, 0, false
		}
		code = code<<4 | d
	}
	return code, 6, true
}

// escapeKey escapes the characters that terminate a properties key.
func escapeKey(key string) string {
	key = strings.ReplaceAll(key, `\`, `\\`)
	key = strings.ReplaceAll(key, "=", `\=`)
	key = strings.ReplaceAll(key, ":", `\:`)
	return key
}
