package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/timmy/quill/internal/domain"
	"github.com/timmy/quill/internal/logger"
	"github.com/timmy/quill/internal/storage"
)

// Archiver uploads completed articles as markdown objects.
type Archiver struct {
	store  storage.ObjectStorage
	prefix string
}

// NewArchiver creates an Archiver writing under prefix (default "articles").
func NewArchiver(store storage.ObjectStorage, prefix string) *Archiver {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "articles"
	}
	return &Archiver{store: store, prefix: prefix}
}

// Key returns the object key for an article.
func (a *Archiver) Key(id string) string {
	return path.Join(a.prefix, id+".md")
}

// Archive uploads the article content and returns its URL.
func (a *Archiver) Archive(ctx context.Context, article *domain.Article) (string, error) {
	if article.Content == "" {
		return "", fmt.Errorf("article %s has no content", article.ID)
	}
	key := a.Key(article.ID)
	start := time.Now()
	if err := a.store.Put(ctx, key, []byte(article.Content), "text/markdown; charset=utf-8"); err != nil {
		return "", err
	}
	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldSize:       len(article.Content),
	}).Debug(ctx, "Article archived: key=%s", key)
	return a.store.URL(key), nil
}

// Remove deletes the archived copy of an article.
func (a *Archiver) Remove(ctx context.Context, id string) error {
	return a.store.Delete(ctx, a.Key(id))
}
