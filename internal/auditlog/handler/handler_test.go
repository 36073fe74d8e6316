package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didledger/internal/auditlog/models"
	"didledger/internal/auditlog/service"
	"didledger/internal/auditlog/store"
	"didledger/internal/ledger"
	id "didledger/pkg/domain"
	"didledger/pkg/platform/httputil"
)

const (
	didRegistry    id.Identity = "0x00000000000000000000000000000000000000d1"
	statusRegistry id.Identity = "0x00000000000000000000000000000000000000c5"
)

func newAuditRouter(t *testing.T, entries int) http.Handler {
	t.Helper()
	svc, err := service.New(store.NewInMemoryStore(), ledger.NewMemory(), didRegistry, statusRegistry)
	require.NoError(t, err)
	for i := 0; i < entries; i++ {
		_, err := svc.RecordEvent(context.Background(), models.EventDIDRegistered, "did:ethr:0x123", "0x01", didRegistry)
		require.NoError(t, err)
	}
	h := New(svc, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleGetEntry(t *testing.T) {
	router := newAuditRouter(t, 2)

	t.Run("existing entry", func(t *testing.T) {
		rec := get(t, router, "/audit/entries/1")
		require.Equal(t, http.StatusOK, rec.Code)
		var entry models.Entry
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&entry))
		assert.Equal(t, uint64(1), entry.Sequence)
		assert.Equal(t, didRegistry, entry.Source)
	})

	t.Run("out of range", func(t *testing.T) {
		rec := get(t, router, "/audit/entries/2")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		var resp httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "not_found", resp.Error)
	})

	t.Run("malformed sequence", func(t *testing.T) {
		rec := get(t, router, "/audit/entries/-1")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleListEntries(t *testing.T) {
	router := newAuditRouter(t, 5)

	rec := get(t, router, "/audit/entries?from=1&limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Entries, 3)
	assert.Equal(t, uint64(1), resp.Entries[0].Sequence)
	assert.Equal(t, uint64(4), resp.Next)

	rec = get(t, router, "/audit/entries?from=9")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Entries)
	assert.Equal(t, uint64(9), resp.Next)

	rec = get(t, router, "/audit/entries?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCountAndVerify(t *testing.T) {
	router := newAuditRouter(t, 3)

	rec := get(t, router, "/audit/count")
	require.Equal(t, http.StatusOK, rec.Code)
	var count CountResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&count))
	assert.Equal(t, uint64(3), count.Count)

	rec = get(t, router, "/audit/verify")
	require.Equal(t, http.StatusOK, rec.Code)
	var result service.VerifyResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.True(t, result.Valid)
	assert.Equal(t, uint64(3), result.Checked)
}

func TestMissingEntryIsNotLoggedAsError(t *testing.T) {
	svc, err := service.New(store.NewInMemoryStore(), ledger.NewMemory(), didRegistry, statusRegistry)
	require.NoError(t, err)
	var logs bytes.Buffer
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(&logs, nil))).Register(r)

	rec := get(t, r, "/audit/entries/7")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, logs.String())
}
