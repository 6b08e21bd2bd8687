package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/quill/internal/config"
	"github.com/timmy/quill/internal/domain"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI-compatible chat completion request/response structures
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type openAIBackend struct {
	client   *resty.Client
	endpoint string
}

// NewOpenAIClient creates a client for OpenAI-compatible chat completion APIs.
// Parameters:
//   - cfg: provider configuration; the API key is required.
// Returns:
//   - *ChatClient: client for the openai family.
//   - error: non-nil if the configuration is invalid.
func NewOpenAIClient(cfg *config.ProviderConfig) (*ChatClient, error) {
	cfg = cfg.Clone()
	if cfg.Family == "" {
		cfg.Family = config.FamilyOpenAI
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.MaxRetries > 0 {
		client.SetRetryCount(cfg.MaxRetries)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	backend := &openAIBackend{client: client, endpoint: baseURL + "/chat/completions"}
	return newChatClient(config.FamilyOpenAI, backend, cfg.RequestsPerSecond), nil
}

func (b *openAIBackend) chat(ctx context.Context, req chatRequest) (*Completion, error) {
	body := openAIRequest{
		Model: req.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	var resp openAIResponse
	httpResp, err := b.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(b.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call chat API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != nil {
			return nil, fmt.Errorf("chat API returned HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return nil, fmt.Errorf("chat API returned HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("chat API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in chat response")
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &Completion{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model: model,
		Usage: domain.NewUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}, nil
}
