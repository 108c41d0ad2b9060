package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Browser renders the page in headless Chrome so script-built content is
// present in the DOM, then hands the rendered HTML to goquery.
// A browser is launched per Document call and torn down afterwards.
type Browser struct {
	Headless bool
	Timeout  time.Duration
}

func (b *Browser) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	l := launcher.New().Headless(b.Headless).Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: rawURL})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed waiting for page load: %w", err)
	}

	rendered, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered HTML: %w", err)
	}

	// Prefer the final address after redirects.
	finalURL := rawURL
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if u, err := url.Parse(finalURL); err == nil {
		doc.Url = u
	}
	return doc, nil
}
