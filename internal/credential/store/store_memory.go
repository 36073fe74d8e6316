// Package store persists credential status records.
package store

import (
	"context"
	"sync"

	"didledger/internal/credential/models"
	id "didledger/pkg/domain"
	"didledger/pkg/platform/sentinel"
	"didledger/pkg/platform/tx"
)

// InMemoryStore keeps records in a map. Writes made inside a ledger
// transaction are undone if the transaction rolls back.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.CredentialID]models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.CredentialID]models.Record)}
}

// Create stores record if the credential is not tracked yet.
func (s *InMemoryStore) Create(ctx context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.CredentialID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.records[record.CredentialID] = *record
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.records, record.CredentialID)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credentialID id.CredentialID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

// FindMany returns the tracked records among ids. Untracked ids are absent
// from the result.
func (s *InMemoryStore) FindMany(_ context.Context, ids []id.CredentialID) (map[id.CredentialID]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.CredentialID]models.Record, len(ids))
	for _, credentialID := range ids {
		if record, ok := s.records[credentialID]; ok {
			out[credentialID] = record
		}
	}
	return out, nil
}

// Execute loads the record, runs validate, and applies mutate when
// validation passes. The store lock is held for the whole sequence.
func (s *InMemoryStore) Execute(ctx context.Context, credentialID id.CredentialID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, ok := s.records[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	updated := previous
	if err := validate(&updated); err != nil {
		return nil, err
	}
	mutate(&updated)
	s.records[credentialID] = updated
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.records[credentialID] = previous
	})
	return &updated, nil
}
