package llm

import (
	"context"
	"sync"

	"github.com/timmy/quill/internal/domain"
)

// MockCall records one call received by MockClient.
type MockCall struct {
	Op    string // outline, article, expand, shorten
	Model string
}

// MockClient is a test double. Each operation runs its hook if set,
// otherwise returns canned text with usage {10, 5, 15}. Every call is
// recorded, and a cancelled context is honored before the hook runs.
type MockClient struct {
	FamilyName string

	OutlineFunc func(ctx context.Context, req OutlineRequest) (*Completion, error)
	ArticleFunc func(ctx context.Context, req ArticleRequest) (*Completion, error)
	ReviseFunc  func(ctx context.Context, req ReviseRequest) (*Completion, error)

	mu    sync.Mutex
	calls []MockCall
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock for family.
func NewMockClient(family string) *MockClient {
	return &MockClient{FamilyName: family}
}

// Family returns the configured family name.
func (m *MockClient) Family() string {
	return m.FamilyName
}

func (m *MockClient) record(op, model string) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Op: op, Model: model})
	m.mu.Unlock()
}

// GenerateOutline implements Client.
func (m *MockClient) GenerateOutline(ctx context.Context, req OutlineRequest) (*Completion, error) {
	m.record("outline", req.Model)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.OutlineFunc != nil {
		return m.OutlineFunc(ctx, req)
	}
	return &Completion{Text: "# " + req.Topic + "\n\n## Introduction\n\n## Conclusion", Model: req.Model, Usage: domain.NewUsage(10, 5)}, nil
}

// GenerateArticle implements Client.
func (m *MockClient) GenerateArticle(ctx context.Context, req ArticleRequest) (*Completion, error) {
	m.record("article", req.Model)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ArticleFunc != nil {
		return m.ArticleFunc(ctx, req)
	}
	return &Completion{Text: "# " + req.Topic + "\n\n" + req.Thesis, Model: req.Model, Usage: domain.NewUsage(10, 5)}, nil
}

// Revise implements Client.
func (m *MockClient) Revise(ctx context.Context, req ReviseRequest) (*Completion, error) {
	m.record(string(req.Mode), req.Model)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ReviseFunc != nil {
		return m.ReviseFunc(ctx, req)
	}
	return &Completion{Text: req.Text, Model: req.Model, Usage: domain.NewUsage(10, 5)}, nil
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CountOp returns how many calls of op were received.
func (m *MockClient) CountOp(op string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}
