// Package analysis asks a chat-completion model for a page digest: a title,
// a summary and a keyword list.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dtnitsch/llm-web-digest/models"
)

const (
	DefaultBaseURL     = "https://api.siliconflow.cn/v1"
	DefaultModel       = "deepseek-ai/DeepSeek-V2.5"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024

	systemPrompt = `你是一个网页内容分析助手。请分析提供的网页内容，提取标题、生成总结和关键词。直接返回JSON格式数据，不要添加任何其他格式标记。格式：{"title": "文章标题", "summary": "总结内容", "keywords": ["关键词1", "关键词2"]}`
)

// Client calls the chat-completion endpoint. It holds no per-request state
// and is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	model        string
	temperature  float64
	maxTokens    int
	languageHint bool
	logger       *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }
func WithBaseURL(u string) Option           { return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") } }
func WithModel(m string) Option             { return func(c *Client) { c.model = m } }
func WithMaxTokens(n int) Option            { return func(c *Client) { c.maxTokens = n } }
func WithLanguageHint(on bool) Option       { return func(c *Client) { c.languageHint = on } }
func WithLogger(l *slog.Logger) Option      { return func(c *Client) { c.logger = l } }

func New(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{},
		baseURL:      DefaultBaseURL,
		model:        DefaultModel,
		temperature:  DefaultTemperature,
		maxTokens:    DefaultMaxTokens,
		languageHint: true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Analyze sends content to the model and returns the validated digest.
// There is no retry; the first failure is returned.
func (c *Client) Analyze(ctx context.Context, content, apiKey, pageURL string) (models.Analysis, error) {
	body, err := json.Marshal(c.buildRequest(content, pageURL))
	if err != nil {
		return models.Analysis{}, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return models.Analysis{}, fmt.Errorf("failed to build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("failed to call analysis api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("failed to read analysis response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Analysis{}, &models.APIError{
			API:        "analysis",
			StatusCode: resp.StatusCode,
			Message:    ErrorMessage(respBody, resp.StatusCode),
		}
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return models.Analysis{}, &models.ResponseParseError{Reason: fmt.Sprintf("invalid response body: %v", err), Raw: string(respBody)}
	}
	if len(chat.Choices) == 0 {
		return models.Analysis{}, &models.ResponseParseError{Reason: "response has no choices", Raw: string(respBody)}
	}

	reply := chat.Choices[0].Message.Content
	c.logger.Debug("analysis reply received", "url", pageURL, "bytes", len(reply))

	result, err := decodeAnalysis(reply)
	if err != nil {
		c.logger.Warn("could not use analysis reply", "url", pageURL, "error", err)
		return models.Analysis{}, err
	}
	return result, nil
}

func (c *Client) buildRequest(content, pageURL string) chatRequest {
	system := systemPrompt
	if c.languageHint {
		if lang := DetectLanguage(content); lang != "" {
			system += fmt.Sprintf("\nWrite the title, summary and keywords in %s.", lang)
		}
	}

	return chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: fmt.Sprintf("URL: %s\n\n内容:\n%s", pageURL, content)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      false,
	}
}

// ErrorMessage pulls a human-readable message out of an error body, falling
// back to the HTTP status text.
func ErrorMessage(body []byte, status int) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if json.Unmarshal(payload.Error, &plain) == nil && plain != "" {
			return plain
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}
