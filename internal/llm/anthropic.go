package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/timmy/quill/internal/config"
	"github.com/timmy/quill/internal/domain"
)

type anthropicBackend struct {
	client  anthropic.Client
	timeout time.Duration
}

// NewAnthropicClient creates a client on the official Anthropic SDK. The SDK
// retries 429 and 5xx responses itself, up to cfg.MaxRetries.
func NewAnthropicClient(cfg *config.ProviderConfig) (*ChatClient, error) {
	cfg = cfg.Clone()
	if cfg.Family == "" {
		cfg.Family = config.FamilyAnthropic
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	backend := &anthropicBackend{client: anthropic.NewClient(opts...), timeout: cfg.Timeout}
	return newChatClient(config.FamilyAnthropic, backend, cfg.RequestsPerSecond), nil
}

func (b *anthropicBackend) chat(ctx context.Context, req chatRequest) (*Completion, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: completion failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	return &Completion{
		Text:  strings.TrimSpace(text.String()),
		Model: string(msg.Model),
		Usage: domain.NewUsage(int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)),
	}, nil
}
