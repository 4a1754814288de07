package trim

import "context"

// Repository defines the interface for operation persistence.
// Records are never removed, so they outlive the assets they describe.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// Save persists an operation. An existing operation is replaced.
	Save(ctx context.Context, op *Operation) error

	// FindByID retrieves an operation by its unique identifier.
	// Returns ErrOperationNotFound if the operation does not exist.
	FindByID(ctx context.Context, id string) (*Operation, error)

	// ListByAsset returns the operations run against assetID, oldest first.
	ListByAsset(ctx context.Context, assetID string) ([]*Operation, error)
}
