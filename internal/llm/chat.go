package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/timmy/quill/internal/logger"
	"github.com/timmy/quill/internal/prompts"
)

// chatRequest is the single primitive every backend implements.
type chatRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

type chatBackend interface {
	chat(ctx context.Context, req chatRequest) (*Completion, error)
}

// ChatClient turns the outline/article/revise operations into chat calls
// on one backend. Calls wait on a per-family rate limiter.
type ChatClient struct {
	family  string
	backend chatBackend
	limiter *rate.Limiter
}

var _ Client = (*ChatClient)(nil)

func newChatClient(family string, backend chatBackend, rps float64) *ChatClient {
	c := &ChatClient{family: family, backend: backend}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
	return c
}

// Family returns the provider family name.
func (c *ChatClient) Family() string {
	return c.family
}

// GenerateOutline produces a markdown outline.
func (c *ChatClient) GenerateOutline(ctx context.Context, req OutlineRequest) (*Completion, error) {
	return c.call(ctx, "outline", chatRequest{
		Model:       req.Model,
		System:      prompts.OutlineSystem,
		Prompt:      prompts.Outline(req.Topic, req.Thesis, req.Keywords, req.Questions),
		MaxTokens:   OutlineMaxTokens(req.Model),
		Temperature: Temperature,
	})
}

// GenerateArticle produces the full article text.
func (c *ChatClient) GenerateArticle(ctx context.Context, req ArticleRequest) (*Completion, error) {
	return c.call(ctx, "article", chatRequest{
		Model:       req.Model,
		System:      prompts.ArticleSystem,
		Prompt:      prompts.Article(req.Topic, req.Thesis, req.Outline, req.Keywords, req.StyleExamples, req.TargetLength),
		MaxTokens:   ArticleMaxTokens(req.Model),
		Temperature: Temperature,
	})
}

// Revise runs one expand or shorten pass.
func (c *ChatClient) Revise(ctx context.Context, req ReviseRequest) (*Completion, error) {
	var prompt string
	switch req.Mode {
	case ReviseExpand:
		prompt = prompts.Expand(req.Text, req.CurrentLength, req.TargetLength)
	case ReviseShorten:
		prompt = prompts.Shorten(req.Text, req.CurrentLength, req.TargetLength)
	default:
		return nil, fmt.Errorf("%w: unknown revise mode %q", ErrProviderCall, req.Mode)
	}
	return c.call(ctx, string(req.Mode), chatRequest{
		Model:       req.Model,
		System:      prompts.ReviseSystem,
		Prompt:      prompt,
		MaxTokens:   ArticleMaxTokens(req.Model),
		Temperature: Temperature,
	})
}

func (c *ChatClient) call(ctx context.Context, op string, req chatRequest) (*Completion, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", ErrProviderCall, c.family, op, err)
		}
	}

	start := time.Now()
	out, err := c.backend.chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrProviderCall, c.family, op, err)
	}
	if out.Text == "" {
		return nil, fmt.Errorf("%w: %s %s: empty completion", ErrProviderCall, c.family, op)
	}

	logger.With(logger.Fields{
		logger.FieldProvider:   c.family,
		logger.FieldModel:      req.Model,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldTokens:     out.Usage.TotalTokens,
	}).Debug(ctx, "%s call finished", op)
	return out, nil
}
