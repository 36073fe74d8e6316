package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditservice "didledger/internal/auditlog/service"
	auditstore "didledger/internal/auditlog/store"
	"didledger/internal/credential/service"
	"didledger/internal/credential/store"
	"didledger/internal/ledger"
	id "didledger/pkg/domain"
	"didledger/pkg/testutil"
)

const (
	didRegistry    id.Identity = "0x00000000000000000000000000000000000000d1"
	statusRegistry id.Identity = "0x00000000000000000000000000000000000000c5"
	issuer                     = "0x0000000000000000000000000000000000000001"
	stranger                   = "0x0000000000000000000000000000000000000002"
)

func newCredentialRouter(t *testing.T) http.Handler {
	t.Helper()
	l := ledger.NewMemory()
	audit, err := auditservice.New(auditstore.NewInMemoryStore(), l, didRegistry, statusRegistry)
	require.NoError(t, err)
	svc, err := service.New(store.NewInMemoryStore(), l, audit, statusRegistry)
	require.NoError(t, err)

	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Group(h.RegisterPublic)
	r.Group(h.RegisterProtected)
	return r
}

func TestCredentialStatusLifecycle(t *testing.T) {
	router := newCredentialRouter(t)
	credentialID := "https://issuer.example/credentials/42"
	statusPath := "/credentials/" + url.PathEscape(credentialID) + "/status"

	t.Run("untracked credential reports unknown", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, statusPath))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[StatusResponse](t, rr)
		assert.Equal(t, "unknown", resp.Status)
		assert.Equal(t, credentialID, resp.CredentialID)
	})

	t.Run("issue requires authentication", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/credentials", map[string]string{"credential_id": credentialID})
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusUnauthorized, "unauthenticated")
	})

	t.Run("issue defaults to active", func(t *testing.T) {
		req := testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodPost, "/credentials",
			map[string]string{"credential_id": credentialID}), issuer)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[RecordResponse](t, rr)
		assert.Equal(t, "active", resp.Status)
		assert.Equal(t, issuer, resp.Issuer)
	})

	t.Run("duplicate issue", func(t *testing.T) {
		req := testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodPost, "/credentials",
			map[string]string{"credential_id": credentialID, "status": "suspended"}), stranger)
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusConflict, "duplicate_credential")
	})

	t.Run("stranger cannot change status", func(t *testing.T) {
		req := testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodPut, statusPath,
			map[string]string{"status": "revoked"}), stranger)
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusForbidden, "unauthorized")
	})

	t.Run("issuer suspends", func(t *testing.T) {
		req := testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodPut, statusPath,
			map[string]string{"status": "Suspended"}), issuer)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)

		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, statusPath))
		resp := testutil.UnmarshalResponse[StatusResponse](t, rr)
		assert.Equal(t, "suspended", resp.Status)
	})

	t.Run("unknown is not settable", func(t *testing.T) {
		req := testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodPut, statusPath,
			map[string]string{"status": "unknown"}), issuer)
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusBadRequest, "validation_error")
	})

	t.Run("set status on untracked credential", func(t *testing.T) {
		req := testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodPut, "/credentials/urn:uuid:none/status",
			map[string]string{"status": "revoked"}), issuer)
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusNotFound, "not_found")
	})

	t.Run("full record", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/credentials/"+url.PathEscape(credentialID)))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[RecordResponse](t, rr)
		assert.Equal(t, "suspended", resp.Status)
	})
}

func TestHandleBatchStatus(t *testing.T) {
	router := newCredentialRouter(t)
	req := testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodPost, "/credentials",
		map[string]string{"credential_id": "urn:uuid:a", "status": "revoked"}), issuer)
	require.Equal(t, http.StatusCreated, testutil.DoRequest(router, req).Code)

	t.Run("mixes tracked and untracked ids", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/credentials/status:batch",
			map[string][]string{"credential_ids": {"urn:uuid:a", "urn:uuid:b", "urn:uuid:a"}})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[BatchStatusResponse](t, rr)
		assert.Equal(t, map[string]string{"urn:uuid:a": "revoked", "urn:uuid:b": "unknown"}, resp.Statuses)
	})

	t.Run("empty list rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/credentials/status:batch",
			map[string][]string{"credential_ids": {}})
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusBadRequest, "validation_error")
	})
}

func TestCredentialIDsAreDecodedOnce(t *testing.T) {
	router := newCredentialRouter(t)
	issue := func(credentialID, status string) {
		req := testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodPost, "/credentials",
			map[string]string{"credential_id": credentialID, "status": status}), issuer)
		require.Equal(t, http.StatusCreated, testutil.DoRequest(router, req).Code)
	}
	issue("aA", "revoked")
	issue("a%41", "active")
	issue("50%off", "suspended")
	issue("urn:example/7", "revoked")

	tests := []struct {
		name         string
		path         string
		credentialID string
		status       string
	}{
		{"escaped percent is not decoded twice", "/credentials/a%2541/status", "a%41", "active"},
		{"literal percent round-trips", "/credentials/50%25off/status", "50%off", "suspended"},
		{"escaped slash stays in one segment", "/credentials/urn:example%2F7/status", "urn:example/7", "revoked"},
		{"plain id", "/credentials/aA/status", "aA", "revoked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, tt.path))
			testutil.AssertStatusOK(t, rr)
			resp := testutil.UnmarshalResponse[StatusResponse](t, rr)
			assert.Equal(t, tt.credentialID, resp.CredentialID)
			assert.Equal(t, tt.status, resp.Status)
		})
	}

	t.Run("status change targets the escaped id", func(t *testing.T) {
		req := testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodPut, "/credentials/a%2541/status",
			map[string]string{"status": "suspended"}), issuer)
		testutil.AssertStatusOK(t, testutil.DoRequest(router, req))

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/credentials/aA/status"))
		resp := testutil.UnmarshalResponse[StatusResponse](t, rr)
		assert.Equal(t, "revoked", resp.Status, "aA is untouched")
	})
}
