package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"", StorageTypeS3},
		{"https://acct.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.eu-west-1.amazonaws.com", StorageTypeS3},
		{"http://localhost:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, detectStorageType(tt.endpoint))
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "localhost:9000", normalizeEndpoint("http://localhost:9000/some/path"))
	assert.Equal(t, "s3.amazonaws.com", normalizeEndpoint("https://s3.amazonaws.com"))
	assert.Equal(t, "", normalizeEndpoint(""))
}

func TestNewS3StorageRequiresBucket(t *testing.T) {
	_, err := NewS3Storage(&S3Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestNewS3StoragePublicURL(t *testing.T) {
	s, err := NewS3Storage(&S3Config{Endpoint: "http://localhost:9000", Bucket: "quill", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/quill/articles/a.md", s.URL("articles/a.md"))

	s, err = NewS3Storage(&S3Config{Bucket: "quill", Region: "eu-west-1", PublicURL: "https://cdn.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/articles/a.md", s.URL("articles/a.md"))
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(&S3Config{Type: StorageTypeMemory})
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "articles/a.md", []byte("# A"), "text/markdown"))
	ok, err := s.Exists(ctx, "articles/a.md")
	require.NoError(t, err)
	assert.True(t, ok)

	body, err := s.Get(ctx, "articles/a.md")
	require.NoError(t, err)
	assert.Equal(t, "# A", string(body))

	require.NoError(t, s.Delete(ctx, "articles/a.md"))
	_, err = s.Get(ctx, "articles/a.md")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}
