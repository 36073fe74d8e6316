// Package store persists DID documents.
package store

import (
	"context"
	"sync"

	"didledger/internal/did/models"
	id "didledger/pkg/domain"
	"didledger/pkg/platform/sentinel"
	"didledger/pkg/platform/tx"
)

// InMemoryStore keeps documents in a map. Writes made inside a ledger
// transaction are undone if the transaction rolls back.
type InMemoryStore struct {
	mu        sync.RWMutex
	documents map[id.DID]*models.Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{documents: make(map[id.DID]*models.Document)}
}

// Create stores doc if its DID has never been registered.
func (s *InMemoryStore) Create(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.DID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.documents[doc.DID] = doc.Clone()
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.documents, doc.DID)
	})
	return nil
}

func (s *InMemoryStore) FindByDID(_ context.Context, did id.DID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[did]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return doc.Clone(), nil
}

// Execute loads the document, runs validate, and applies mutate when
// validation passes. The store lock is held for the whole sequence.
func (s *InMemoryStore) Execute(ctx context.Context, did id.DID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.documents[did]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(current.Clone()); err != nil {
		return nil, err
	}
	previous := current.Clone()
	updated := current.Clone()
	mutate(updated)
	s.documents[did] = updated
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.documents[did] = previous
	})
	return updated.Clone(), nil
}
