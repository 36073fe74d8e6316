package store

import (
	"context"
	"sync"

	"didledger/internal/auditlog/models"
	"didledger/pkg/platform/sentinel"
	"didledger/pkg/platform/tx"
)

// InMemoryStore keeps audit entries in a slice indexed by sequence.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []models.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append adds entry at the tail. The entry's sequence must equal the current
// count; anything else returns sentinel.ErrConflict.
func (s *InMemoryStore) Append(ctx context.Context, entry models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.Sequence != uint64(len(s.entries)) {
		return sentinel.ErrConflict
	}
	s.entries = append(s.entries, entry)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if uint64(len(s.entries)) > entry.Sequence {
			s.entries = s.entries[:entry.Sequence]
		}
	})
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, sequence uint64) (models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sequence >= uint64(len(s.entries)) {
		return models.Entry{}, sentinel.ErrNotFound
	}
	return s.entries[sequence], nil
}

func (s *InMemoryStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.entries)), nil
}

func (s *InMemoryStore) Last(_ context.Context) (models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return models.Entry{}, sentinel.ErrNotFound
	}
	return s.entries[len(s.entries)-1], nil
}

// List returns up to limit entries starting at sequence from.
func (s *InMemoryStore) List(_ context.Context, from uint64, limit int) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := uint64(len(s.entries))
	if from >= n {
		return []models.Entry{}, nil
	}
	end := from + uint64(clampLimit(limit))
	if end > n {
		end = n
	}
	out := make([]models.Entry, end-from)
	copy(out, s.entries[from:end])
	return out, nil
}
