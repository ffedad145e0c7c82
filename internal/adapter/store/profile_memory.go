package store

import (
	"context"
	"sync"
	"time"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
)

// MemoryProfileStore is the in-process profile store used when Redis is not
// configured. Documents do not survive a restart.
type MemoryProfileStore struct {
	mu   sync.Mutex
	docs map[string]domain.Document
	now  func() time.Time
}

// NewMemoryProfileStore creates an empty store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{docs: make(map[string]domain.Document), now: time.Now}
}

func (s *MemoryProfileStore) Get(ctx context.Context, userID string) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[userID].Clone(), nil
}

func (s *MemoryProfileStore) Set(ctx context.Context, userID string, partial domain.Document) (domain.Document, error) {
	return s.Update(ctx, userID, func(domain.Document) domain.Document { return partial })
}

func (s *MemoryProfileStore) Update(ctx context.Context, userID string, fn func(existing domain.Document) domain.Document) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.docs[userID]
	merged := domain.ApplyPartial(existing, fn(existing.Clone()), userID, s.now())
	s.docs[userID] = merged
	return merged.Clone(), nil
}

func (s *MemoryProfileStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, userID)
	return nil
}
