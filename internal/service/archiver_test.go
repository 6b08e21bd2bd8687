package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/quill/internal/domain"
	"github.com/timmy/quill/internal/storage"
)

func TestArchiver(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage("https://cdn.example.com")
	a := NewArchiver(store, "/articles/")

	url, err := a.Archive(ctx, &domain.Article{ID: "a1", Content: "# Title"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/articles/a1.md", url)
	assert.Equal(t, "text/markdown; charset=utf-8", store.ContentType("articles/a1.md"))

	body, err := store.Get(ctx, "articles/a1.md")
	require.NoError(t, err)
	assert.Equal(t, "# Title", string(body))

	require.NoError(t, a.Remove(ctx, "a1"))
	ok, _ := store.Exists(ctx, "articles/a1.md")
	assert.False(t, ok)

	_, err = a.Archive(ctx, &domain.Article{ID: "a2"})
	assert.Error(t, err)
}
