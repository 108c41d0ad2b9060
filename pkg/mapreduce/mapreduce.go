// Package mapreduce tallies keywords across stored records.
package mapreduce

import (
	"sort"
	"strings"

	"github.com/dtnitsch/llm-web-digest/models"
)

// KeywordCount is one row of a keyword tally.
type KeywordCount struct {
	Keyword string `yaml:"keyword"`
	Count   int    `yaml:"count"`
}

// Map counts the keywords of a single record, folded to lower case.
func Map(rec models.Record) map[string]int {
	counts := make(map[string]int)
	for _, kw := range models.SplitKeywords(rec.Keywords) {
		counts[strings.ToLower(kw)]++
	}
	return counts
}

// Reduce aggregates per-record counts into a single map.
func Reduce(intermediate []map[string]int) map[string]int {
	final := make(map[string]int)
	for _, counts := range intermediate {
		for kw, n := range counts {
			final[kw] += n
		}
	}
	return final
}

// Tally runs Map over every record and reduces the results.
func Tally(records []models.Record) map[string]int {
	intermediate := make([]map[string]int, 0, len(records))
	for _, r := range records {
		intermediate = append(intermediate, Map(r))
	}
	return Reduce(intermediate)
}

// TopKeywords returns the n most frequent keywords, highest count first and
// alphabetical among ties. n <= 0 returns all of them.
func TopKeywords(counts map[string]int, n int) []KeywordCount {
	out := make([]KeywordCount, 0, len(counts))
	for kw, c := range counts {
		out = append(out, KeywordCount{Keyword: kw, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
