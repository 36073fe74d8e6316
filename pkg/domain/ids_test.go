package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "didledger/pkg/domain-errors"
)

// TestParseDID_Invariants validates the parsing invariant:
// "DIDs are did:<method>:<id> with a lower-case method and a non-empty id"
func TestParseDID_Invariants(t *testing.T) {
	valid := []string{
		"did:ethr:0x123",
		"did:web:example.com",
		"did:web:example.com:user:alice",
		"did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK",
		"did:example:abc%20def",
	}
	for _, s := range valid {
		t.Run("accepts "+s, func(t *testing.T) {
			did, err := ParseDID(s)
			require.NoError(t, err)
			assert.Equal(t, DID(s), did)
		})
	}

	invalid := map[string]string{
		"empty":                "",
		"missing scheme":       "ethr:0x123",
		"missing method":       "did::0x123",
		"upper-case method":    "did:ETHR:0x123",
		"missing specific id":  "did:ethr:",
		"no separator":         "did:ethr",
		"trailing colon":       "did:web:example.com:",
		"bad percent encoding": "did:example:abc%2",
		"space inside":         "did:ethr:0x 123",
		"oversized":            "did:ethr:" + strings.Repeat("a", maxDIDLength),
	}
	for name, s := range invalid {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := ParseDID(s)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestDIDMethod(t *testing.T) {
	assert.Equal(t, "ethr", DID("did:ethr:0x123").Method())
	assert.Equal(t, "web", DID("did:web:example.com:user").Method())
}

func TestParseIdentity(t *testing.T) {
	t.Run("lower-cases hex addresses", func(t *testing.T) {
		id, err := ParseIdentity("0xAbCdEF0123")
		require.NoError(t, err)
		assert.Equal(t, Identity("0xabcdef0123"), id)
	})

	t.Run("keeps other identities verbatim", func(t *testing.T) {
		id, err := ParseIdentity("  did:web:Issuer.Example ")
		require.NoError(t, err)
		assert.Equal(t, Identity("did:web:Issuer.Example"), id)
	})

	t.Run("rejects empty and whitespace", func(t *testing.T) {
		for _, s := range []string{"", "   ", "addr 1", "addr\t1"} {
			_, err := ParseIdentity(s)
			require.Error(t, err, "input %q", s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestParseCredentialID(t *testing.T) {
	id, err := ParseCredentialID(" urn:uuid:3978344f-8596-4c3a-a978-8fcaba3903c5 ")
	require.NoError(t, err)
	assert.Equal(t, CredentialID("urn:uuid:3978344f-8596-4c3a-a978-8fcaba3903c5"), id)

	_, err = ParseCredentialID("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseCredentialID(strings.Repeat("c", maxCredentialIDLength+1))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
