package trim

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
type MemoryRepository struct {
	mu  sync.RWMutex
	ops map[string]*Operation
}

// NewMemoryRepository creates a new in-memory operation repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		ops: make(map[string]*Operation),
	}
}

// Save stores a clone of op to avoid external mutations.
func (r *MemoryRepository) Save(_ context.Context, op *Operation) error {
	clone := op.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.ID] = clone
	return nil
}

// FindByID returns a clone of the stored operation.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[id]
	if !ok {
		return nil, ErrOperationNotFound
	}
	return op.Clone(), nil
}

// ListByAsset returns clones of the operations for assetID, oldest first.
func (r *MemoryRepository) ListByAsset(_ context.Context, assetID string) ([]*Operation, error) {
	r.mu.RLock()
	result := make([]*Operation, 0)
	for _, op := range r.ops {
		if op.AssetID == assetID {
			result = append(result, op.Clone())
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(result, func(a, b *Operation) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

