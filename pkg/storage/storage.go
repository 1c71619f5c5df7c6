// Package storage defines the object store used for uploaded content files.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("storage: object not found")

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("storage: invalid key")

// Usage summarises what the store currently holds.
type Usage struct {
	Objects int64
	Bytes   int64
}

// Store is implemented by the local filesystem and S3 drivers.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Usage(ctx context.Context) (Usage, error)
	Ping(ctx context.Context) error
}

// NewKey builds a collision-free object key of the form <prefix>/<uuid><ext>.
func NewKey(prefix, ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(strings.Trim(prefix, "/"), uuid.NewString()+ext)
}

// CleanKey normalises a key and rejects traversal outside the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
