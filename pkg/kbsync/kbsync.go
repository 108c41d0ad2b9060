// Package kbsync forwards captured page text to a Dify-style knowledge base.
package kbsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dtnitsch/llm-web-digest/models"
)

const (
	// LayoutCreateByText posts to <base>/datasets/<id>/document/create-by-text.
	LayoutCreateByText = "create-by-text"
	// LayoutDocuments posts a single segment to <base>/datasets/<id>/documents.
	LayoutDocuments = "documents"

	untitled = "未命名文章"
)

// Client creates one knowledge-base document per captured page.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	datasetID  string
	layout     string
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }
func WithLayout(layout string) Option       { return func(c *Client) { c.layout = layout } }
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// New builds a client for one dataset. The API key is required at
// construction so every request carries it.
func New(baseURL, apiKey, datasetID string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(apiKey) == "" || strings.TrimSpace(datasetID) == "" {
		return nil, &models.ConfigError{Key: "sync", Msg: "base url, api key and dataset id are all required"}
	}
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		datasetID:  datasetID,
		layout:     LayoutCreateByText,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.layout != LayoutCreateByText && c.layout != LayoutDocuments {
		return nil, &models.ConfigError{Key: "sync_layout", Msg: fmt.Sprintf("unknown layout %q", c.layout)}
	}
	return c, nil
}

// NewFromSettings builds a client from the stored settings.
func NewFromSettings(s models.Settings, opts ...Option) (*Client, error) {
	return New(s.SyncAPIURL, s.SyncAPIKey, s.SyncDatasetID, opts...)
}

type processRule struct {
	Mode string `json:"mode"`
}

type createByTextRequest struct {
	Name              string      `json:"name"`
	Text              string      `json:"text"`
	IndexingTechnique string      `json:"indexing_technique"`
	ProcessRule       processRule `json:"process_rule"`
	DocForm           string      `json:"doc_form"`
}

type segment struct {
	Content    string `json:"content"`
	Reference  string `json:"reference"`
	Source     string `json:"source"`
	SourceType string `json:"source_type"`
}

type documentsRequest struct {
	Segments []segment `json:"segments"`
}

// DocumentName is the title (or a placeholder) suffixed with the current
// time in milliseconds so repeated captures never collide.
func DocumentName(title string, now time.Time) string {
	if strings.TrimSpace(title) == "" {
		title = untitled
	}
	return fmt.Sprintf("%s_%d", title, now.UnixMilli())
}

// Sync creates the document. Every failure is returned as a *models.SyncError.
func (c *Client) Sync(ctx context.Context, content, title, pageURL string) (models.SyncDocument, error) {
	name := DocumentName(title, c.now())

	endpoint, payload := c.request(name, content, title, pageURL)
	body, err := json.Marshal(payload)
	if err != nil {
		return models.SyncDocument{}, &models.SyncError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.SyncDocument{}, &models.SyncError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.SyncDocument{}, &models.SyncError{Err: fmt.Errorf("failed to call knowledge api: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.SyncDocument{}, &models.SyncError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.SyncDocument{}, &models.SyncError{Err: &models.APIError{
			API:        "sync",
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody, resp.StatusCode),
		}}
	}

	doc := models.SyncDocument{Name: name}
	var raw map[string]any
	if json.Unmarshal(respBody, &raw) == nil {
		doc.Raw = raw
		if d, ok := raw["document"].(map[string]any); ok {
			if id, ok := d["id"].(string); ok {
				doc.ID = id
			}
		}
	}
	return doc, nil
}

func (c *Client) request(name, content, title, pageURL string) (string, any) {
	base := fmt.Sprintf("%s/datasets/%s", c.baseURL, c.datasetID)
	if c.layout == LayoutDocuments {
		return base + "/documents", documentsRequest{
			Segments: []segment{{
				Content:    content,
				Reference:  pageURL,
				Source:     pageURL,
				SourceType: "web",
			}},
		}
	}
	return base + "/document/create-by-text", createByTextRequest{
		Name:              name,
		Text:              fmt.Sprintf("标题: %s\nURL: %s\n\n%s", title, pageURL, content),
		IndexingTechnique: "high_quality",
		ProcessRule:       processRule{Mode: "automatic"},
		DocForm:           "text_model",
	}
}

func errorMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}
