// Package answer post-processes model answers before Markdown and math rendering.
package answer

import (
	"regexp"
	"strings"
)

var (
	legacyDelimiterRe = regexp.MustCompile(`\\[\[\]()]`)
	textSpanRe        = regexp.MustCompile(`\\text\{.*?\}`)
	linkedCitationRe  = regexp.MustCompile(`\[(\d+)\]\([^)]*\)`)

	delimiterReplacer = strings.NewReplacer(
		`\[`, `$$`,
		`\]`, `$$`,
		`\(`, `$`,
		`\)`, `$`,
	)
)

// Sanitize rewrites legacy LaTeX delimiters to dollar form and strips
// hyperlinks from numeric citation markers inside \text{...} spans.
func Sanitize(raw string) string {
	if raw == "" {
		return raw
	}
	return StripTextCitationLinks(NormalizeMathDelimiters(raw))
}

// HasLegacyDelimiters reports whether s still contains \[ \] \( or \).
func HasLegacyDelimiters(s string) bool {
	return legacyDelimiterRe.MatchString(s)
}

// NormalizeMathDelimiters maps \[ \] to $$ and \( \) to $. The substitution
// is purely textual; nesting is not parsed.
func NormalizeMathDelimiters(s string) string {
	if !HasLegacyDelimiters(s) {
		return s
	}
	return delimiterReplacer.Replace(s)
}

// StripTextCitationLinks turns [n](url) into [n] inside \text{...} spans.
// Links outside those spans keep their URL.
func StripTextCitationLinks(s string) string {
	if !strings.Contains(s, `\text{`) {
		return s
	}
	return textSpanRe.ReplaceAllStringFunc(s, func(span string) string {
		return linkedCitationRe.ReplaceAllString(span, "[$1]")
	})
}
