// Package fetcher supplies the parsed DOM of the page being captured.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	SourceHTTP    = "http"
	SourceBrowser = "browser"
	SourceFile    = "file"

	userAgent = "llm-web-digest/1.0 (+https://github.com/dtnitsch/llm-web-digest)"
)

// Source yields the DOM snapshot for a URL.
type Source interface {
	Document(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// Options configures NewSource.
type Options struct {
	Timeout  time.Duration
	HTMLFile string
	Headless bool
}

// NewSource returns the Source registered under name.
func NewSource(name string, opts Options) (Source, error) {
	switch name {
	case "", SourceHTTP:
		return NewFetcher(opts.Timeout), nil
	case SourceBrowser:
		return &Browser{Headless: opts.Headless, Timeout: opts.Timeout}, nil
	case SourceFile:
		if opts.HTMLFile == "" {
			return nil, fmt.Errorf("source %q requires an HTML file", SourceFile)
		}
		return &File{Path: opts.HTMLFile}, nil
	}
	return nil, fmt.Errorf("unknown page source: %s", name)
}

// Fetcher downloads pages over plain HTTP.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	bodyBytes, err := f.GetHTMLBytes(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return parseDocument(bodyBytes, rawURL)
}

func (f *Fetcher) GetHTMLBytes(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch HTML, status code: %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return bodyBytes, nil
}

// File reads a saved HTML snapshot. The URL passed to Document is recorded as
// the page address.
type File struct {
	Path string
}

func (f *File) Document(_ context.Context, rawURL string) (*goquery.Document, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML file: %w", err)
	}
	return parseDocument(data, rawURL)
}

func parseDocument(data []byte, rawURL string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if u, err := url.Parse(rawURL); err == nil {
		doc.Url = u
	}
	return doc, nil
}
