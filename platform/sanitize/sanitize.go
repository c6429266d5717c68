// Package sanitize cleans user supplied free text before it is stored.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	tagPattern = regexp.MustCompile(`<[^>]*>`)
	entities   = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", `"`, "&#39;", "'")
)

// Text strips markup and surrounding space from s. Entities are decoded
// once and the result stripped again, so encoded tags do not survive.
func Text(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = entities.Replace(s)
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Line is Text collapsed to a single line with single spaces.
func Line(s string) string {
	return strings.Join(strings.Fields(Text(s)), " ")
}
