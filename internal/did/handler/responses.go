package handler

import (
	"encoding/hex"
	"time"

	"didledger/internal/did/models"
)

// DocumentResponse is the JSON form of a DID document. Keys are 0x hex.
type DocumentResponse struct {
	DID        string    `json:"did"`
	Controller string    `json:"controller"`
	PublicKey  string    `json:"public_key"`
	KeyType    string    `json:"key_type"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toDocumentResponse(doc *models.Document) DocumentResponse {
	return DocumentResponse{
		DID:        doc.DID.String(),
		Controller: doc.Controller.String(),
		PublicKey:  "0x" + hex.EncodeToString(doc.PublicKey),
		KeyType:    doc.KeyType,
		IsActive:   doc.IsActive,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

type RevokeResponse struct {
	DID     string `json:"did"`
	Revoked bool   `json:"revoked"`
}
