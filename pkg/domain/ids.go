package domain

import (
	"strings"
	"unicode/utf8"

	dErrors "didledger/pkg/domain-errors"
)

// Length limits applied at trust boundaries.
const (
	maxIdentityLength     = 256
	maxDIDLength          = 2048
	maxCredentialIDLength = 512
)

// Identity names an actor: a DID controller, a credential issuer, the caller
// of an operation, or the source identity of a registry.
//
// Invariant: non-empty, valid UTF-8, no whitespace. 0x-prefixed hex addresses
// are lower-cased so that "0xAbC" and "0xabc" compare equal.
type Identity string

// ParseIdentity validates and normalizes an identity at a trust boundary.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity cannot be empty")
	}
	if len(s) > maxIdentityLength || !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid identity")
	}
	if strings.ContainsFunc(s, isSpaceOrControl) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity must not contain whitespace")
	}
	if isHexAddress(s) {
		s = strings.ToLower(s)
	}
	return Identity(s), nil
}

func (i Identity) String() string { return string(i) }

// IsNil reports whether the identity is unset.
func (i Identity) IsNil() bool { return i == "" }

// DID is a decentralized identifier of the form did:<method>:<method-specific-id>.
type DID string

// ParseDID validates DID syntax. The method name is lower-case alphanumeric;
// the method-specific id uses the idchar set (ALPHA / DIGIT / "." / "-" / "_"
// / pct-encoded) with ":" separators, and may not end in ":".
func ParseDID(s string) (DID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "did cannot be empty")
	}
	if len(s) > maxDIDLength || !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid did")
	}
	rest, ok := strings.CutPrefix(s, "did:")
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "did must start with \"did:\"")
	}
	method, specific, ok := strings.Cut(rest, ":")
	if !ok || method == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "did method is required")
	}
	for i := 0; i < len(method); i++ {
		c := method[i]
		if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') {
			return "", dErrors.New(dErrors.CodeInvalidInput, "did method must be lower-case alphanumeric")
		}
	}
	if specific == "" || strings.HasSuffix(specific, ":") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "did method-specific id is required")
	}
	if !validMethodSpecificID(specific) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "did method-specific id contains invalid characters")
	}
	return DID(s), nil
}

func (d DID) String() string { return string(d) }

// Method returns the DID method name, e.g. "ethr" for did:ethr:0x123.
func (d DID) Method() string {
	rest := strings.TrimPrefix(string(d), "did:")
	method, _, _ := strings.Cut(rest, ":")
	return method
}

// CredentialID identifies a tracked verifiable credential. Any non-empty
// printable string is accepted (URNs, URLs, UUIDs).
type CredentialID string

// ParseCredentialID validates a credential identifier.
func ParseCredentialID(s string) (CredentialID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential id cannot be empty")
	}
	if len(s) > maxCredentialIDLength || !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid credential id")
	}
	if strings.ContainsFunc(s, isSpaceOrControl) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential id must not contain whitespace")
	}
	return CredentialID(s), nil
}

func (c CredentialID) String() string { return string(c) }

func validMethodSpecificID(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '-', c == '_', c == ':':
		case c == '%':
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return false
			}
			i += 2
		default:
			return false
		}
	}
	return true
}

func isHexAddress(s string) bool {
	hex, ok := strings.CutPrefix(s, "0x")
	if !ok {
		hex, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || hex == "" {
		return false
	}
	for i := 0; i < len(hex); i++ {
		if !isHex(hex[i]) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isSpaceOrControl(r rune) bool {
	return r <= ' ' || r == 0x7f
}
