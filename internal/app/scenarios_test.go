package app_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditmodels "didledger/internal/auditlog/models"
	dErrors "didledger/pkg/domain-errors"
	"didledger/pkg/testutil"
)

const testDID = "did:ethr:0x123"

func TestDIDLifecycleOverHTTP(t *testing.T) {
	a := newApp(t)
	router := a.Router()
	token1 := bearer(t, a, addr1)
	token2 := bearer(t, a, addr2)

	register := func(token string) *http.Request {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/dids", map[string]string{
			"did":        testDID,
			"public_key": hexKey("publicKey123"),
			"key_type":   "EcdsaSecp256k1VerificationKey2019",
		})
		return testutil.WithBearer(req, token)
	}
	rotate := func(token, key string) *http.Request {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/dids/"+testDID+"/keys", map[string]string{
			"public_key": hexKey(key),
			"key_type":   "EcdsaSecp256k1VerificationKey2019",
		})
		return testutil.WithBearer(req, token)
	}
	resolve := func(t *testing.T) map[string]any {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/dids/"+testDID))
		testutil.AssertStatusOK(t, rr)
		return *testutil.UnmarshalResponse[map[string]any](t, rr)
	}

	testutil.Given(t, "addr1 registers did:ethr:0x123", func(t *testing.T) {
		rr := testutil.DoRequest(router, register(token1))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		testutil.Then(t, "the document resolves to addr1, active, with publicKey123", func(t *testing.T) {
			doc := resolve(t)
			assert.Equal(t, addr1.String(), doc["controller"])
			assert.Equal(t, true, doc["is_active"])
			assert.Equal(t, hexKey("publicKey123"), doc["public_key"])
		})
	})

	testutil.When(t, "the same DID is registered again by anyone", func(t *testing.T) {
		for _, token := range []string{token1, token2} {
			rr := testutil.DoRequest(router, register(token))
			testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeDuplicateDID))
		}
	})

	testutil.When(t, "addr1 rotates to publicKey456", func(t *testing.T) {
		rr := testutil.DoRequest(router, rotate(token1, "publicKey456"))
		testutil.AssertStatusOK(t, rr)

		testutil.Then(t, "resolution returns the new key", func(t *testing.T) {
			assert.Equal(t, hexKey("publicKey456"), resolve(t)["public_key"])
		})
	})

	testutil.When(t, "addr2 attempts a rotation", func(t *testing.T) {
		rr := testutil.DoRequest(router, rotate(token2, "publicKeyEvil"))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, string(dErrors.CodeUnauthorized))

		testutil.Then(t, "the document is unchanged", func(t *testing.T) {
			assert.Equal(t, hexKey("publicKey456"), resolve(t)["public_key"])
		})
	})

	testutil.When(t, "addr1 revokes the DID", func(t *testing.T) {
		req := testutil.WithBearer(testutil.NewRequest(t, http.MethodPost, "/dids/"+testDID+"/revoke"), token1)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)

		testutil.Then(t, "the document is inactive and further rotation fails", func(t *testing.T) {
			assert.Equal(t, false, resolve(t)["is_active"])
			rr := testutil.DoRequest(router, rotate(token1, "publicKey789"))
			testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeInactiveDID))
		})

		testutil.Then(t, "a second revocation fails", func(t *testing.T) {
			req := testutil.WithBearer(testutil.NewRequest(t, http.MethodPost, "/dids/"+testDID+"/revoke"), token1)
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeAlreadyRevoked))
		})
	})

	testutil.Then(t, "the audit log holds exactly the accepted mutations", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/audit/entries"))
		testutil.AssertStatusOK(t, rr)
		page := testutil.UnmarshalResponse[struct {
			Entries []auditmodels.Entry `json:"entries"`
		}](t, rr)

		require.Len(t, page.Entries, 3)
		assert.Equal(t, auditmodels.EventDIDRegistered, page.Entries[0].EventType)
		assert.Equal(t, auditmodels.EventDIDKeyRotated, page.Entries[1].EventType)
		assert.Equal(t, auditmodels.EventDIDRevoked, page.Entries[2].EventType)
		for i, e := range page.Entries {
			assert.Equal(t, uint64(i), e.Sequence)
			assert.Equal(t, addr1, e.Actor)
			assert.Equal(t, testDID, e.SubjectID)
		}

		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/audit/verify"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "valid", true)
	})
}

func TestCredentialStatusOverHTTP(t *testing.T) {
	a := newApp(t)
	router := a.Router()
	issuerToken := bearer(t, a, addr1)
	credentialID := "https://issuer.example/credentials/42"
	statusPath := "/credentials/" + url.PathEscape(credentialID) + "/status"

	getStatus := func(t *testing.T, path string) string {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, path))
		testutil.AssertStatusOK(t, rr)
		return (*testutil.UnmarshalResponse[map[string]any](t, rr))["status"].(string)
	}

	testutil.Given(t, "a credential that was never issued", func(t *testing.T) {
		testutil.Then(t, "its status is unknown", func(t *testing.T) {
			assert.Equal(t, "unknown", getStatus(t, statusPath))
		})
	})

	testutil.When(t, "addr1 issues it", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/credentials", map[string]string{"credential_id": credentialID})
		rr := testutil.DoRequest(router, testutil.WithBearer(req, issuerToken))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		assert.Equal(t, "active", getStatus(t, statusPath))
	})

	testutil.When(t, "addr2 tries to revoke it", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, statusPath, map[string]string{"status": "revoked"})
		rr := testutil.DoRequest(router, testutil.WithBearer(req, bearer(t, a, addr2)))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, string(dErrors.CodeUnauthorized))
		assert.Equal(t, "active", getStatus(t, statusPath))
	})

	testutil.When(t, "addr1 suspends then reactivates it", func(t *testing.T) {
		for _, status := range []string{"suspended", "active"} {
			req := testutil.NewJSONRequest(t, http.MethodPut, statusPath, map[string]string{"status": status})
			rr := testutil.DoRequest(router, testutil.WithBearer(req, issuerToken))
			testutil.AssertStatusOK(t, rr)
			assert.Equal(t, status, getStatus(t, statusPath))
		}
	})

	testutil.Then(t, "a batch lookup mixes tracked and untracked ids", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/credentials/status:batch", map[string][]string{
			"credential_ids": {credentialID, "urn:uuid:missing"},
		})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[struct {
			Statuses map[string]string `json:"statuses"`
		}](t, rr)
		assert.Equal(t, map[string]string{credentialID: "active", "urn:uuid:missing": "unknown"}, resp.Statuses)
	})
}

func TestAuditSourcesAndOrdering(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	didSource, statusSource := a.Audit.Sources()

	testutil.Given(t, "an audit log built with the two registry sources", func(t *testing.T) {
		testutil.When(t, "each source records one event", func(t *testing.T) {
			seq0, err := a.Audit.RecordEvent(ctx, auditmodels.EventDIDRegistered, testDID, addr1, didSource)
			require.NoError(t, err)
			seq1, err := a.Audit.RecordEvent(ctx, auditmodels.EventCredentialStatusIssued, "urn:uuid:1", addr1, statusSource)
			require.NoError(t, err)

			testutil.Then(t, "they receive sequences 0 and 1 in order", func(t *testing.T) {
				assert.Equal(t, uint64(0), seq0)
				assert.Equal(t, uint64(1), seq1)
			})
		})

		testutil.When(t, "a foreign address records an event", func(t *testing.T) {
			_, err := a.Audit.RecordEvent(ctx, auditmodels.EventDIDRegistered, testDID, addr1, addr2)

			testutil.Then(t, "it fails without consuming a sequence number", func(t *testing.T) {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorizedSource))
				count, err := a.Audit.EntryCount(ctx)
				require.NoError(t, err)
				assert.Equal(t, uint64(2), count)
			})
		})
	})
}

func TestInterleavedRegistriesKeepAGaplessSequence(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	sub, cancel := a.Publisher.Subscribe(64)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		suffix := string(rune('a' + i))
		did := idDID(t, "did:example:"+suffix)
		credentialID := idCredential(t, "urn:uuid:"+suffix)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := a.DIDs.RegisterDID(ctx, did, []byte("key"), "Ed25519", addr1)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := a.Credentials.IssueCredentialStatus(ctx, credentialID, addr2, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := a.Audit.ListEntries(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, entries, 20)
	for i, e := range entries {
		assert.Equal(t, uint64(i), e.Sequence)
	}

	for i := 0; i < 20; i++ {
		e := <-sub
		assert.Equal(t, uint64(i), e.Sequence, "subscribers observe commit order")
	}

	result, err := a.Audit.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}
