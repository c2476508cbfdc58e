package store

import (
	"context"
	"sync"

	"github.com/Karannkx/Kxshare/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps shares in a plain map. Expired records linger until
// the lifecycle manager purges them on access; there is no background
// sweep.
type MemoryStore struct {
	shares map[string]*models.Share
	mu     sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shares: make(map[string]*models.Share),
	}
}

func (s *MemoryStore) Save(ctx context.Context, share *models.Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shares[share.ID]; exists {
		return ErrDuplicateID
	}

	s.shares[share.ID] = share
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	share, ok := s.shares[id]
	if !ok {
		return nil, ErrNotFound
	}

	return share, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.shares, id)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shares = nil
	return nil
}
