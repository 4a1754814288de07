// Package storage provides the asset store used to keep uploaded and trimmed
// recordings. It defines the Store interface (port) for hexagonal
// architecture and implementations for local disk and S3.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists under the requested key.
var ErrNotFound = errors.New("storage: asset not found")

// ErrInvalidKey is returned for empty keys or keys that escape the store root.
var ErrInvalidKey = errors.New("storage: invalid key")

// Store is a key-value store for audio bytes.
// Writes replace any existing object under the same key; readers never
// observe a partially written object.
type Store interface {
	// Load returns the object stored under key.
	// Returns ErrNotFound if the key does not exist.
	Load(ctx context.Context, key string) ([]byte, error)

	// Store writes data under key and returns a reference to the stored
	// object (a file path or URL) suitable for reporting to clients.
	Store(ctx context.Context, key string, data []byte) (ref string, err error)

	// Delete removes the object under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}

// OriginalKey is the key of the uploaded recording for an asset.
func OriginalKey(assetID string) string {
	return assetID + ".wav"
}

// TrimmedKey is the key of the trimmed recording for an asset.
func TrimmedKey(assetID string) string {
	return assetID + "_trimmed.wav"
}
