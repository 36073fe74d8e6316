package models

import (
	"bytes"
	"strings"
	"time"

	id "didledger/pkg/domain"
	dErrors "didledger/pkg/domain-errors"
)

const (
	maxPublicKeyBytes = 4096
	maxKeyTypeLength  = 128
)

// Document is the aggregate root for a registered DID.
//
// Invariants:
//   - DID is immutable and never reassigned, even after revocation
//   - Controller is the registering identity and the only one allowed to mutate
//   - PublicKey is non-empty; KeyType labels it and is replaced with it
//   - IsActive is true from registration until revocation; revocation is terminal
//   - UpdatedAt never precedes CreatedAt
type Document struct {
	DID        id.DID      `json:"did"`
	Controller id.Identity `json:"controller"`
	PublicKey  []byte      `json:"public_key"`
	KeyType    string      `json:"key_type"`
	IsActive   bool        `json:"is_active"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewDocument builds an active document controlled by controller.
func NewDocument(did id.DID, controller id.Identity, publicKey []byte, keyType string, now time.Time) (*Document, error) {
	if did == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "did cannot be empty")
	}
	if controller.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "controller cannot be empty")
	}
	keyType, err := validateKey(publicKey, keyType)
	if err != nil {
		return nil, err
	}
	return &Document{
		DID:        did,
		Controller: controller,
		PublicKey:  bytes.Clone(publicKey),
		KeyType:    keyType,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ValidateKey checks key material without building a document.
func ValidateKey(publicKey []byte, keyType string) error {
	_, err := validateKey(publicKey, keyType)
	return err
}

func validateKey(publicKey []byte, keyType string) (string, error) {
	if len(publicKey) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "public key cannot be empty")
	}
	if len(publicKey) > maxPublicKeyBytes {
		return "", dErrors.New(dErrors.CodeValidation, "public key must be 4096 bytes or less")
	}
	keyType = strings.TrimSpace(keyType)
	if keyType == "" {
		return "", dErrors.New(dErrors.CodeValidation, "key type cannot be empty")
	}
	if len(keyType) > maxKeyTypeLength {
		return "", dErrors.New(dErrors.CodeValidation, "key type must be 128 characters or less")
	}
	return keyType, nil
}

// IsControlledBy reports whether caller may mutate the document.
func (d *Document) IsControlledBy(caller id.Identity) bool {
	return !caller.IsNil() && d.Controller == caller
}

// CanRotate checks that caller may replace the key material.
func (d *Document) CanRotate(caller id.Identity) error {
	if !d.IsControlledBy(caller) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the DID controller")
	}
	if !d.IsActive {
		return dErrors.New(dErrors.CodeInactiveDID, "DID has been revoked")
	}
	return nil
}

// ApplyRotation replaces the key material.
// Must only be called after CanRotate returns nil.
func (d *Document) ApplyRotation(publicKey []byte, keyType string, now time.Time) {
	d.PublicKey = bytes.Clone(publicKey)
	d.KeyType = strings.TrimSpace(keyType)
	d.UpdatedAt = now
}

// CanRevoke checks that caller may revoke the document.
func (d *Document) CanRevoke(caller id.Identity) error {
	if !d.IsControlledBy(caller) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the DID controller")
	}
	if !d.IsActive {
		return dErrors.New(dErrors.CodeAlreadyRevoked, "DID is already revoked")
	}
	return nil
}

// ApplyRevocation deactivates the document permanently.
// Must only be called after CanRevoke returns nil.
func (d *Document) ApplyRevocation(now time.Time) {
	d.IsActive = false
	d.UpdatedAt = now
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.PublicKey = bytes.Clone(d.PublicKey)
	return &c
}
