// Package storage archives finished articles in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Get for a missing key.
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectStorage is the subset of object storage the archive needs.
type ObjectStorage interface {
	// Put stores body under key, replacing any previous object.
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// Get returns the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// URL returns the address an object is served from.
	URL(key string) string

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}
