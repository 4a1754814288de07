// Package id provides unique identifier generation for assets and trim operations.
package id

import "github.com/google/uuid"

// NewAssetID creates a new asset identifier (a random UUID).
// Asset IDs double as storage key stems, so they contain no path separators.
func NewAssetID() string {
	return uuid.NewString()
}

// NewOperationID creates a new trim operation identifier.
// Format: trim-<uuid>
func NewOperationID() string {
	return "trim-" + uuid.NewString()
}

// IsAssetID reports whether s has the shape of an asset identifier.
func IsAssetID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
