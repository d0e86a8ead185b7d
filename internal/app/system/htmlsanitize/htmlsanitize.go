// Package htmlsanitize cleans user-supplied organization text before it is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize keeps basic formatting markup (paragraphs, emphasis, lists, safe
// links) and strips scripts, event handlers and other active content.
// Used for organization descriptions.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(richPolicy.Sanitize(s))
}

// Text strips all markup and returns plain text. Used for names, categories
// and locations, which are displayed verbatim.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}
