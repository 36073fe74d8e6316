package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didledger/internal/auditlog/models"
	"didledger/internal/auditlog/store"
	"didledger/internal/ledger"
)

// chain builds n sealed, correctly linked entries.
func chain(n int) []models.Entry {
	entries := make([]models.Entry, n)
	prev := models.GenesisHash
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := range entries {
		e := models.Entry{
			Sequence:  uint64(i),
			EventType: models.EventDIDKeyRotated,
			SubjectID: "did:ethr:0x123",
			Actor:     addr1,
			Source:    didRegistry,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			PrevHash:  prev,
		}
		e.Seal()
		prev = e.Hash
		entries[i] = e
	}
	return entries
}

func verifyWith(t *testing.T, entries []models.Entry) *VerifyResult {
	t.Helper()
	st := store.NewInMemoryStore()
	for _, e := range entries {
		require.NoError(t, st.Append(context.Background(), e))
	}
	svc, err := New(st, ledger.NewMemory(), didRegistry, statusRegistry)
	require.NoError(t, err)
	result, err := svc.Verify(context.Background())
	require.NoError(t, err)
	return result
}

func TestVerify(t *testing.T) {
	t.Run("empty log is valid", func(t *testing.T) {
		result := verifyWith(t, nil)
		assert.True(t, result.Valid)
		assert.Zero(t, result.Checked)
	})

	t.Run("intact chain spanning several pages", func(t *testing.T) {
		result := verifyWith(t, chain(250))
		assert.True(t, result.Valid)
		assert.Equal(t, uint64(250), result.Checked)
	})

	t.Run("tampered field", func(t *testing.T) {
		entries := chain(5)
		entries[3].Actor = foreign
		result := verifyWith(t, entries)
		assert.False(t, result.Valid)
		require.NotNil(t, result.BrokenAt)
		assert.Equal(t, uint64(3), *result.BrokenAt)
		assert.Equal(t, "entry hash mismatch", result.Reason)
	})

	t.Run("resealed entry breaks the link", func(t *testing.T) {
		entries := chain(5)
		entries[2].SubjectID = "did:ethr:0x999"
		entries[2].Seal()
		result := verifyWith(t, entries)
		assert.False(t, result.Valid)
		assert.Equal(t, uint64(3), *result.BrokenAt)
		assert.Equal(t, "previous hash mismatch", result.Reason)
	})

	t.Run("unlinked source", func(t *testing.T) {
		entries := chain(2)
		entries[1].Source = foreign
		entries[1].Seal()
		result := verifyWith(t, entries)
		assert.False(t, result.Valid)
		assert.Equal(t, uint64(1), *result.BrokenAt)
	})
}
