package models

import (
	"sort"
	"strings"
)

// Record is one persisted result of a capture-and-analyze cycle.
type Record struct {
	ID        int64  `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	URL       string `json:"url" yaml:"url"`
	Date      string `json:"date" yaml:"date"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Summary   string `json:"summary" yaml:"summary"`
	Keywords  string `json:"keywords" yaml:"keywords"`
	Notes     string `json:"notes" yaml:"notes"`
}

// KeywordSeparator joins analysis keywords into Record.Keywords.
const KeywordSeparator = ", "

// JoinKeywords formats a keyword list for storage.
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, KeywordSeparator)
}

// SplitKeywords is the inverse of JoinKeywords. Empty entries are dropped.
func SplitKeywords(keywords string) []string {
	var out []string
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Matches reports whether term occurs (case-insensitively) in any text field.
func (r Record) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, field := range []string{r.Title, r.URL, r.Date, r.Summary, r.Keywords, r.Notes} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// SortNewestFirst orders records by timestamp descending, newest first.
// Timestamps are RFC3339 in UTC so lexical order is chronological.
// Ties keep the higher id first.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Timestamp != records[j].Timestamp {
			return records[i].Timestamp > records[j].Timestamp
		}
		return records[i].ID > records[j].ID
	})
}

// TimestampLayout is the fixed-width UTC layout used for Record.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DateLayout is the human-readable capture date stored in Record.Date.
const DateLayout = "2006/01/02"
