package store

import (
	"context"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of structures kept by Cached
const DefaultCacheSize = 256

// Cached keeps recently read structures in an LRU in front of another Store.
// Writes go through and evict the affected entries.
type Cached struct {
	Store
	structures *lru.Cache[string, Structure]
}

// NewCached wraps next with a structure cache of the given size
func NewCached(next Store, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, Structure](size)
	if err != nil {
		return nil, err
	}
	return &Cached{Store: next, structures: cache}, nil
}

// GetStructure serves from the cache when possible
func (c *Cached) GetStructure(ctx context.Context, ownerID, name string) (*Structure, error) {
	key := structureKey(ownerID, name)
	if s, ok := c.structures.Get(key); ok {
		return &s, nil
	}

	s, err := c.Store.GetStructure(ctx, ownerID, name)
	if err != nil {
		return nil, err
	}
	c.structures.Add(key, *s)
	return s, nil
}

// SaveStructure writes through and evicts the cached copy
func (c *Cached) SaveStructure(ctx context.Context, s *Structure) error {
	c.structures.Remove(structureKey(s.OwnerID, s.Name))
	return c.Store.SaveStructure(ctx, s)
}

// DeleteStructure writes through and evicts the cached copy
func (c *Cached) DeleteStructure(ctx context.Context, ownerID, name string) error {
	c.structures.Remove(structureKey(ownerID, name))
	return c.Store.DeleteStructure(ctx, ownerID, name)
}

// IncrementUsage writes through and refreshes the cached count
func (c *Cached) IncrementUsage(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	count, err := c.Store.IncrementUsage(ctx, id, delta)
	if err != nil {
		return 0, err
	}
	for _, key := range c.structures.Keys() {
		if s, ok := c.structures.Peek(key); ok && s.ID == id {
			s.UsageCount = count
			c.structures.Add(key, s)
		}
	}
	return count, nil
}

// Len returns the number of cached structures
func (c *Cached) Len() int {
	return c.structures.Len()
}
