// Package extractor turns a parsed page into the cleaned text sent for analysis.
package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/llm-web-digest/models"
)

const (
	StrategySelectors   = "selectors"
	StrategyReadability = "readability"
)

// MainContentSelectors are tried in order when the page has no <article>.
// Blog-engine containers come after the generic ones.
var MainContentSelectors = []string{
	"main",
	".main-content",
	"#content",
	".content",
	".article-content",
	".post-content",
	".entry-content",
}

// Extractor produces the cleaned body text of a document.
type Extractor interface {
	Extract(doc *goquery.Document) (string, error)
}

// New returns the extractor registered under strategy.
func New(strategy string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategySelectors:
		return &SelectorExtractor{Selectors: MainContentSelectors}, nil
	case StrategyReadability:
		return &ReadabilityExtractor{}, nil
	}
	return nil, fmt.Errorf("unknown extractor strategy: %s", strategy)
}

// SelectorExtractor picks the first of <article>, a main-content container or
// <body>, and returns its cleaned text.
type SelectorExtractor struct {
	Selectors []string
}

func (e *SelectorExtractor) Extract(doc *goquery.Document) (string, error) {
	text := Clean(innerText(e.container(doc)))
	if text == "" {
		return "", &models.ExtractionError{URL: docURL(doc), Err: models.ErrNoContent}
	}
	return text, nil
}

// container returns the element whose text is extracted. First match wins.
func (e *SelectorExtractor) container(doc *goquery.Document) *goquery.Selection {
	if article := doc.Find("article").First(); article.Length() > 0 {
		return article
	}
	for _, sel := range e.Selectors {
		if main := doc.Find(sel).First(); main.Length() > 0 {
			return main
		}
	}
	return doc.Find("body").First()
}

// Title returns the document <title>, cleaned.
func Title(doc *goquery.Document) string {
	return Clean(doc.Find("title").First().Text())
}

func docURL(doc *goquery.Document) string {
	if doc == nil || doc.Url == nil {
		return ""
	}
	return doc.Url.String()
}
