package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dtnitsch/llm-web-digest/models"
)

var (
	codeFence  = regexp.MustCompile("(?i)```json\\s*|\\s*```")
	objectSpan = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseResult is the outcome of decoding a model reply: either OK with the
// decoded value, or failed with a reason.
type ParseResult struct {
	OK     bool
	Value  any
	Reason string
}

func parsed(v any) ParseResult              { return ParseResult{OK: true, Value: v} }
func parseFailed(reason string) ParseResult { return ParseResult{Reason: reason} }

// StripCodeFences removes markdown code-fence markers around a reply.
func StripCodeFences(reply string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(reply, ""))
}

// ParseReply decodes the model's text reply. Code fences are stripped first;
// if the remainder is not valid JSON the outermost {...} span is tried.
func ParseReply(reply string) ParseResult {
	cleaned := StripCodeFences(reply)
	if cleaned == "" {
		return parseFailed("empty reply")
	}

	var v any
	directErr := json.Unmarshal([]byte(cleaned), &v)
	if directErr == nil {
		return parsed(v)
	}

	span := objectSpan.FindString(cleaned)
	if span == "" {
		return parseFailed(fmt.Sprintf("no JSON object in reply: %v", directErr))
	}
	if err := json.Unmarshal([]byte(span), &v); err != nil {
		return parseFailed(fmt.Sprintf("invalid JSON object in reply: %v", err))
	}
	return parsed(v)
}

// decodeAnalysis parses and validates a reply into an Analysis.
func decodeAnalysis(reply string) (models.Analysis, error) {
	res := ParseReply(reply)
	if !res.OK {
		return models.Analysis{}, &models.ResponseParseError{Reason: res.Reason, Raw: reply}
	}
	return validateShape(res.Value)
}

// validateShape requires a string title, a non-empty summary and a keywords
// array. The title may be empty; callers fall back to the page title.
func validateShape(v any) (models.Analysis, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return models.Analysis{}, &models.ResponseShapeError{Field: "response", Reason: "is not a JSON object"}
	}

	title, ok := obj["title"].(string)
	if !ok {
		return models.Analysis{}, &models.ResponseShapeError{Field: "title", Reason: "is missing or not a string"}
	}

	summary, _ := obj["summary"].(string)
	if strings.TrimSpace(summary) == "" {
		return models.Analysis{}, &models.ResponseShapeError{Field: "summary", Reason: "is missing or empty"}
	}

	rawKeywords, ok := obj["keywords"].([]any)
	if !ok {
		return models.Analysis{}, &models.ResponseShapeError{Field: "keywords", Reason: "is not an array"}
	}
	keywords := make([]string, 0, len(rawKeywords))
	for _, kw := range rawKeywords {
		switch kw := kw.(type) {
		case string:
			keywords = append(keywords, kw)
		case nil:
		default:
			keywords = append(keywords, fmt.Sprint(kw))
		}
	}

	return models.Analysis{
		Title:    title,
		Summary:  summary,
		Keywords: keywords,
	}, nil
}
