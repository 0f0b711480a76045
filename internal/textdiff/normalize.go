// Package textdiff holds the text comparison primitives used to build change
// records: markup normalisation, a bounded-lookahead word diff and detection of
// changed id-tagged sections.
package textdiff

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// tagStart matches the opening of an element, end tag, comment or doctype.
// A "<" followed by anything else is prose, as in "speed<60".
var tagStart = regexp.MustCompile(`<([A-Za-z/!?])`)

// Normalize strips every tag from markup and collapses whitespace runs into a
// single space. Tags act as word boundaries, so "<p>a</p><p>b</p>" becomes "a b".
func Normalize(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	spaced := tagStart.ReplaceAllString(markup, " <$1")
	plain := html.UnescapeString(stripPolicy.Sanitize(spaced))
	return strings.Join(strings.Fields(plain), " ")
}

// Words splits already normalised text into its whitespace separated words.
func Words(text string) []string {
	return strings.Fields(text)
}
