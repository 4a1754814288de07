package transcript

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader produces the segments for an asset on a cache miss.
type Loader func(ctx context.Context) ([]Segment, error)

// Cache keeps the last transcript produced for each asset.
// Concurrent misses for the same asset share one Loader call.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Transcript
	// gen is bumped by Invalidate so a load that started before the
	// invalidation does not repopulate the entry.
	gen   map[string]uint64
	group singleflight.Group
}

// NewCache creates an empty transcript cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]Transcript),
		gen:     make(map[string]uint64),
	}
}

// Get returns the cached transcript for assetID, calling load on a miss.
// Loader errors are returned as-is and nothing is cached.
//
// The shared load is detached from the cancellation of whichever caller
// started it; each caller stops waiting when its own ctx is done.
func (c *Cache) Get(ctx context.Context, assetID string, load Loader) (Transcript, error) {
	if t, ok := c.lookup(assetID); ok {
		return t, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(assetID, func() (any, error) {
		if t, ok := c.lookup(assetID); ok {
			return t, nil
		}

		c.mu.RLock()
		startGen := c.gen[assetID]
		c.mu.RUnlock()

		segments, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		t := Transcript{AssetID: assetID, Segments: segments}

		c.mu.Lock()
		if c.gen[assetID] == startGen {
			c.entries[assetID] = t.Clone()
		}
		c.mu.Unlock()
		return t, nil
	})

	select {
	case <-ctx.Done():
		return Transcript{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Transcript{}, res.Err
		}
		return res.Val.(Transcript).Clone(), nil
	}
}

// Invalidate drops the cached transcript for assetID.
func (c *Cache) Invalidate(assetID string) {
	c.mu.Lock()
	delete(c.entries, assetID)
	c.gen[assetID]++
	c.mu.Unlock()
	c.group.Forget(assetID)
}

// Len returns the number of cached transcripts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) lookup(assetID string) (Transcript, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[assetID]
	if !ok {
		return Transcript{}, false
	}
	return t.Clone(), true
}
