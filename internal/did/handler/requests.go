package handler

import (
	"encoding/hex"
	"strings"

	id "didledger/pkg/domain"
	dErrors "didledger/pkg/domain-errors"
)

// RegisterRequest is the body of POST /dids.
type RegisterRequest struct {
	DID       string `json:"did" validate:"required,max=2048"`
	PublicKey string `json:"public_key" validate:"required,max=8194"`
	KeyType   string `json:"key_type" validate:"required,max=128"`

	parsedDID id.DID
	parsedKey []byte
}

func (r *RegisterRequest) Normalize() {
	r.DID = strings.TrimSpace(r.DID)
	r.PublicKey = strings.TrimSpace(r.PublicKey)
	r.KeyType = strings.TrimSpace(r.KeyType)
}

// Validate parses the DID and key. Implements httputil.Preparable.
func (r *RegisterRequest) Validate() error {
	did, err := id.ParseDID(r.DID)
	if err != nil {
		return err
	}
	key, err := decodeKey(r.PublicKey)
	if err != nil {
		return err
	}
	r.parsedDID, r.parsedKey = did, key
	return nil
}

// RotateKeyRequest is the body of POST /dids/{did}/keys.
type RotateKeyRequest struct {
	PublicKey string `json:"public_key" validate:"required,max=8194"`
	KeyType   string `json:"key_type" validate:"required,max=128"`

	parsedKey []byte
}

func (r *RotateKeyRequest) Normalize() {
	r.PublicKey = strings.TrimSpace(r.PublicKey)
	r.KeyType = strings.TrimSpace(r.KeyType)
}

func (r *RotateKeyRequest) Validate() error {
	key, err := decodeKey(r.PublicKey)
	if err != nil {
		return err
	}
	r.parsedKey = key
	return nil
}

// decodeKey accepts hex with or without a 0x prefix.
func decodeKey(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	key, err := hex.DecodeString(s)
	if err != nil || len(key) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "public_key must be non-empty hex")
	}
	return key, nil
}
