package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dtnitsch/llm-web-digest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatServer answers every completion request with reply as the model content.
func chatServer(t *testing.T, reply string, inspect func(r *http.Request, body chatRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if inspect != nil {
			inspect(r, body)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
}

func TestClient_Analyze(t *testing.T) {
	reply := "```json\n{\"title\":\"T\",\"summary\":\"S\",\"keywords\":[\"a\",\"b\"]}\n```"
	srv := chatServer(t, reply, func(r *http.Request, body chatRequest) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		assert.Equal(t, DefaultModel, body.Model)
		assert.Equal(t, DefaultTemperature, body.Temperature)
		assert.Equal(t, DefaultMaxTokens, body.MaxTokens)
		assert.False(t, body.Stream)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Contains(t, body.Messages[0].Content, `"keywords"`)
		assert.Equal(t, "user", body.Messages[1].Role)
		assert.Equal(t, "URL: https://example.com/a\n\n内容:\nHello World", body.Messages[1].Content)
	})
	defer srv.Close()

	c := New(WithBaseURL(srv.URL+"/v1/"), WithLanguageHint(false))
	got, err := c.Analyze(context.Background(), "Hello World", "sk-test", "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, models.Analysis{Title: "T", Summary: "S", Keywords: []string{"a", "b"}}, got)
}

func TestClient_Analyze_APIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message field", http.StatusUnauthorized, `{"message":"invalid api key"}`, "invalid api key"},
		{"nested error", http.StatusBadRequest, `{"error":{"message":"model not found"}}`, "model not found"},
		{"plain error", http.StatusForbidden, `{"error":"quota exceeded"}`, "quota exceeded"},
		{"no body", http.StatusServiceUnavailable, ``, "Service Unavailable"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(WithBaseURL(srv.URL), WithLanguageHint(false)).Analyze(context.Background(), "x", "k", "u")
			var apiErr *models.APIError
			require.True(t, errors.As(err, &apiErr), "want APIError, got %v", err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, "analysis", apiErr.API)
		})
	}
}

func TestClient_Analyze_BadReplies(t *testing.T) {
	t.Run("shape", func(t *testing.T) {
		srv := chatServer(t, `{"title":"T","keywords":["a"]}`, nil)
		defer srv.Close()
		_, err := New(WithBaseURL(srv.URL), WithLanguageHint(false)).Analyze(context.Background(), "x", "k", "u")
		var shapeErr *models.ResponseShapeError
		assert.True(t, errors.As(err, &shapeErr), "got %v", err)
	})

	t.Run("parse", func(t *testing.T) {
		srv := chatServer(t, "I'm sorry, I can't do that.", nil)
		defer srv.Close()
		_, err := New(WithBaseURL(srv.URL), WithLanguageHint(false)).Analyze(context.Background(), "x", "k", "u")
		var parseErr *models.ResponseParseError
		assert.True(t, errors.As(err, &parseErr), "got %v", err)
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[]}`)
		}))
		defer srv.Close()
		_, err := New(WithBaseURL(srv.URL), WithLanguageHint(false)).Analyze(context.Background(), "x", "k", "u")
		var parseErr *models.ResponseParseError
		assert.True(t, errors.As(err, &parseErr), "got %v", err)
	})
}

func TestClient_LanguageHint(t *testing.T) {
	var system string
	srv := chatServer(t, `{"title":"","summary":"S","keywords":[]}`, func(r *http.Request, body chatRequest) {
		system = body.Messages[0].Content
	})
	defer srv.Close()

	content := strings.Repeat("The committee published its annual report on renewable energy adoption across the region. ", 5)
	_, err := New(WithBaseURL(srv.URL)).Analyze(context.Background(), content, "k", "u")
	require.NoError(t, err)
	assert.Contains(t, system, "Write the title, summary and keywords in English.")
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "", DetectLanguage(""))
	assert.Equal(t, "English", DetectLanguage("This is a plain English sentence about the weather in the mountains."))
	assert.Equal(t, "Chinese", DetectLanguage("这是一个关于网页内容分析的中文句子，我们希望模型用中文回答。"))
}
