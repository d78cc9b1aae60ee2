// Package storage abstracts the attachment store behind a small capability
// interface: upload an object under a key, resolve its retrievable URL,
// enumerate keys under a prefix, and delete by key. The capsule service only
// ever talks to this interface, so the backing store (S3-compatible object
// storage in production, an in-process map in tests) is swappable.
package storage

import (
	"context"
	"io"
)

// BlobStore is the attachment-store capability consumed by the capsule
// lifecycle. Implementations must be safe for concurrent use: creation
// fans out uploads within a content kind.
//
// Delete of a missing key must be a no-op so that re-running a partially
// failed capsule deletion stays idempotent.
type BlobStore interface {
	// Upload stores the object under key and returns its retrievable URL.
	Upload(ctx context.Context, key string, body io.Reader) (string, error)
	// URL resolves the retrievable URL for an existing key without I/O
	// against the object itself.
	URL(key string) string
	// ListPrefix returns every stored key under prefix (recursive).
	ListPrefix(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
