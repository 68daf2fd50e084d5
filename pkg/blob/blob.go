// Package blob provides read access to named storage areas holding posting
// blocks, index descriptors and metadata tables. Backends include a local
// directory, an S3-compatible bucket and an in-memory map, and any backend
// can be wrapped with a circuit breaker and retry policy.
package blob

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotFound is returned when a blob does not exist in its folder.
var ErrNotFound = errors.New("blob not found")

// Store returns the full content of a blob inside a folder. Implementations
// must be safe for concurrent use and must return an error wrapping
// ErrNotFound for absent blobs.
type Store interface {
	Get(ctx context.Context, folder, name string) ([]byte, error)
}

// IsNotFound reports whether err marks an absent blob.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Key joins a folder and blob name into a slash-separated object key.
func Key(folder, name string) string {
	folder = strings.Trim(folder, "/")
	name = strings.TrimPrefix(name, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}
