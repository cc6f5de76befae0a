package artifact

import (
	"context"
	"time"

	// Packages
	expirable "github.com/hashicorp/golang-lru/v2/expirable"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// MemStore is an in-process Store for tests and single-node deployments,
// backed by an expiring LRU. The TTL is fixed at construction; RefreshTTL
// re-inserts the value, which restarts its expiry.
type MemStore struct {
	cache *expirable.LRU[string, []byte]
}

var _ Store = (*MemStore)(nil)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewMemStore creates a store holding at most size entries, each expiring
// ttl after its last write.
func NewMemStore(size int, ttl time.Duration) *MemStore {
	return &MemStore{
		cache: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (s *MemStore) Exists(_ context.Context, key string) (bool, error) {
	return s.cache.Contains(key), nil
}

func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	value, exists := s.cache.Get(key)
	if !exists {
		return nil, nil
	}
	return value, nil
}

func (s *MemStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.cache.Add(key, value)
	return nil
}

func (s *MemStore) RefreshTTL(_ context.Context, key string, _ time.Duration) error {
	if value, exists := s.cache.Get(key); exists {
		s.cache.Add(key, value)
	}
	return nil
}
