package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/quill/internal/config"
)

func newOpenAIServer(t *testing.T, status int, body string, captured *openAIRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAI(t *testing.T, baseURL string) *ChatClient {
	t.Helper()
	c, err := NewOpenAIClient(&config.ProviderConfig{APIKey: "sk-test", BaseURL: baseURL + "/v1"})
	require.NoError(t, err)
	return c
}

func TestOpenAIGenerateOutline(t *testing.T) {
	var captured openAIRequest
	srv := newOpenAIServer(t, http.StatusOK, `{
		"model": "gpt-4o-mini",
		"choices": [{"message": {"content": "# Outline\n## Part"}}],
		"usage": {"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200}
	}`, &captured)

	c := newTestOpenAI(t, srv.URL)
	out, err := c.GenerateOutline(context.Background(), OutlineRequest{
		Topic: "Photosynthesis", Thesis: "Plants convert light to energy",
		Keywords: []string{"chlorophyll"}, Model: "gpt-4o-mini",
	})
	require.NoError(t, err)

	assert.Equal(t, "# Outline\n## Part", out.Text)
	assert.Equal(t, 200, out.Usage.TotalTokens)
	assert.True(t, out.Usage.Consistent())
	assert.Equal(t, "gpt-4o-mini", captured.Model)
	assert.Equal(t, 2000, captured.MaxTokens)
	assert.Equal(t, Temperature, captured.Temperature)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[1].Content, "Photosynthesis")
}

func TestOpenAIArticleUsesDoubledBudget(t *testing.T) {
	var captured openAIRequest
	srv := newOpenAIServer(t, http.StatusOK, `{"choices": [{"message": {"content": "body"}}], "usage": {"prompt_tokens": 1, "completion_tokens": 2}}`, &captured)

	c := newTestOpenAI(t, srv.URL)
	out, err := c.GenerateArticle(context.Background(), ArticleRequest{Topic: "t", Thesis: "th", Model: "gpt-4o", TargetLength: 5000})
	require.NoError(t, err)
	assert.Equal(t, 8000, captured.MaxTokens)
	assert.Equal(t, "gpt-4o", out.Model)
	assert.Equal(t, 3, out.Usage.TotalTokens)
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http error with message", http.StatusTooManyRequests, `{"error": {"message": "rate limited", "type": "rate_limit"}}`, "rate limited"},
		{"no choices", http.StatusOK, `{"choices": []}`, "no choices"},
		{"empty content", http.StatusOK, `{"choices": [{"message": {"content": "  "}}]}`, "empty completion"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newOpenAIServer(t, tt.status, tt.body, nil)
			c := newTestOpenAI(t, srv.URL)
			_, err := c.GenerateOutline(context.Background(), OutlineRequest{Model: "gpt-4o-mini"})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProviderCall)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(&config.ProviderConfig{})
	assert.Error(t, err)
}

func TestReviseUnknownMode(t *testing.T) {
	c := newTestOpenAI(t, "http://127.0.0.1:1")
	_, err := c.Revise(context.Background(), ReviseRequest{Mode: "rewrite"})
	assert.ErrorIs(t, err, ErrProviderCall)
}
