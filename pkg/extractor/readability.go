package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/llm-web-digest/models"
	"github.com/go-shiori/go-readability"
)

// ReadabilityExtractor lets go-readability find the main content and then
// cleans its text the same way SelectorExtractor does.
type ReadabilityExtractor struct{}

func (e *ReadabilityExtractor) Extract(doc *goquery.Document) (string, error) {
	rawHTML, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}

	pageURL := doc.Url
	if pageURL == nil {
		pageURL = &url.URL{}
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(rawHTML), pageURL)
	if err != nil {
		return "", &models.ExtractionError{URL: docURL(doc), Err: fmt.Errorf("%w: %v", models.ErrNoContent, err)}
	}

	// Re-parse the distilled HTML so the same text rules apply.
	content, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", fmt.Errorf("failed to parse readability content: %w", err)
	}

	text := Clean(innerText(content.Find("body").First()))
	if text == "" {
		return "", &models.ExtractionError{URL: docURL(doc), Err: models.ErrNoContent}
	}
	return text, nil
}
