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

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func newAnthropicServer(t *testing.T, resp anthropicResponse, status int, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			var body map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				*captured = body
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAnthropic(t *testing.T, baseURL string) *ChatClient {
	t.Helper()
	c, err := NewAnthropicClient(&config.ProviderConfig{APIKey: "test-key", BaseURL: baseURL, MaxRetries: 0})
	require.NoError(t, err)
	return c
}

func TestAnthropicGenerateArticle(t *testing.T) {
	var captured map[string]interface{}
	srv := newAnthropicServer(t, anthropicResponse{
		ID:         "msg_test",
		Type:       "message",
		Role:       "assistant",
		Content:    []anthropicContent{{Type: "text", Text: "# Title\n"}, {Type: "text", Text: "Body"}},
		Model:      "claude-3-5-sonnet-20241022",
		StopReason: "end_turn",
		Usage:      anthropicUsage{InputTokens: 300, OutputTokens: 700},
	}, http.StatusOK, &captured)

	c := newTestAnthropic(t, srv.URL)
	assert.Equal(t, config.FamilyAnthropic, c.Family())

	out, err := c.GenerateArticle(context.Background(), ArticleRequest{
		Topic: "Photosynthesis", Thesis: "Plants convert light to energy",
		Model: "claude-3-5-sonnet-20241022", TargetLength: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Title\nBody", out.Text)
	assert.Equal(t, 1000, out.Usage.TotalTokens)
	assert.Equal(t, "claude-3-5-sonnet-20241022", out.Model)

	assert.Equal(t, "claude-3-5-sonnet-20241022", captured["model"])
	assert.Equal(t, float64(8000), captured["max_tokens"])
	assert.Equal(t, Temperature, captured["temperature"])
	assert.NotEmpty(t, captured["system"])
}

func TestAnthropicRevise(t *testing.T) {
	var captured map[string]interface{}
	srv := newAnthropicServer(t, anthropicResponse{
		ID: "msg_test", Type: "message", Role: "assistant",
		Content: []anthropicContent{{Type: "text", Text: "longer"}},
		Model:   "claude-3-5-haiku-20241022",
		Usage:   anthropicUsage{InputTokens: 10, OutputTokens: 20},
	}, http.StatusOK, &captured)

	c := newTestAnthropic(t, srv.URL)
	out, err := c.Revise(context.Background(), ReviseRequest{
		Mode: ReviseExpand, Text: "short", CurrentLength: 5, TargetLength: 5000, Model: "claude-3-5-haiku-20241022",
	})
	require.NoError(t, err)
	assert.Equal(t, "longer", out.Text)
	assert.Equal(t, float64(4000), captured["max_tokens"])
}

func TestAnthropicAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"rate limited"}}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestAnthropic(t, srv.URL)
	_, err := c.GenerateOutline(context.Background(), OutlineRequest{Model: "claude-3-5-haiku-20241022"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderCall)
}

func TestAnthropicRequiresKey(t *testing.T) {
	_, err := NewAnthropicClient(&config.ProviderConfig{})
	assert.Error(t, err)
}
