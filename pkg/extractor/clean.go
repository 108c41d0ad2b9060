package extractor

import (
	"regexp"
	"strings"
)

var (
	lineBreaks = regexp.MustCompile(`[\r\n]+`)
	// \s in Go is ASCII only; \p{Z}, \v and the BOM cover what browsers treat as
	// whitespace in rendered text (nbsp, ideographic space, ...).
	whitespaceRun = regexp.MustCompile(`[\s\x{0B}\p{Z}\x{FEFF}]+`)
)

// Clean normalizes extracted text: line-break runs become a single newline,
// every whitespace run becomes a single space, and the ends are trimmed.
// Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	s = lineBreaks.ReplaceAllString(s, "\n")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.Trim(s, " ")
}
