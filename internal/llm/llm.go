// Package llm holds the generative provider clients, the model catalog with
// its pricing, and the router that picks a client for a model.
package llm

import (
	"context"
	"errors"

	"github.com/timmy/quill/internal/domain"
)

var (
	// ErrModelUnavailable means no provider family can serve the model.
	ErrModelUnavailable = errors.New("llm: no provider available for model")

	// ErrProviderCall wraps any failure of a single backend call.
	ErrProviderCall = errors.New("llm: provider call failed")
)

// Temperature is used for every generation call.
const Temperature = 0.7

// OutlineRequest carries the inputs of an outline call.
type OutlineRequest struct {
	Topic     string
	Thesis    string
	Keywords  []string
	Questions []string
	Model     string
}

// ArticleRequest carries the inputs of a full-text call.
type ArticleRequest struct {
	Topic         string
	Thesis        string
	Outline       string
	Keywords      []string
	StyleExamples string
	TargetLength  int
	Model         string
}

// ReviseMode selects the direction of a length correction.
type ReviseMode string

const (
	ReviseExpand  ReviseMode = "expand"
	ReviseShorten ReviseMode = "shorten"
)

// ReviseRequest asks the backend to rewrite Text toward TargetLength.
type ReviseRequest struct {
	Mode          ReviseMode
	Text          string
	CurrentLength int
	TargetLength  int
	Model         string
}

// Completion is the text and token usage of one call.
type Completion struct {
	Text  string
	Model string
	Usage domain.Usage
}

// Client is one provider family's backend.
type Client interface {
	Family() string
	GenerateOutline(ctx context.Context, req OutlineRequest) (*Completion, error)
	GenerateArticle(ctx context.Context, req ArticleRequest) (*Completion, error)
	Revise(ctx context.Context, req ReviseRequest) (*Completion, error)
}
