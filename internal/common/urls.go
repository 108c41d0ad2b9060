// Package common holds helpers shared by the command actions.
package common

import (
	"net/url"
	"regexp"
	"strings"
)

// markdownLink matches "[text](https://...)".
var markdownLink = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

// SanitizeURL cleans up copy-paste artifacts: surrounding whitespace, a
// markdown link wrapper, and stray quotes, brackets or punctuation at either end.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	if m := markdownLink.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = m[1]
	}

	cleaned = strings.TrimRight(cleaned, `,.)}]"'>;`)
	cleaned = strings.TrimLeft(cleaned, `([<"'`)

	return strings.TrimSpace(cleaned)
}

// SplitURLs accepts repeated flags and comma-separated lists in any mix.
func SplitURLs(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// SanitizeAndValidateURLs returns the cleaned http(s) URLs and, separately,
// the raw inputs that are still not usable after cleaning. Duplicates are
// kept: capturing a page twice stores two records.
func SanitizeAndValidateURLs(urls []string) (valid []string, invalid []string) {
	for _, rawURL := range urls {
		cleaned := SanitizeURL(rawURL)
		if !isCapturable(cleaned) {
			invalid = append(invalid, rawURL)
			continue
		}
		valid = append(valid, cleaned)
	}
	return valid, invalid
}

func isCapturable(u string) bool {
	if u == "" || strings.ContainsAny(u, " \t\n") {
		return false
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	host := parsed.Hostname()
	return host != "" && !strings.ContainsAny(host, `{}[]<>"'`)
}
