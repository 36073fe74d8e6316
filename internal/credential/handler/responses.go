package handler

import (
	"time"

	"didledger/internal/credential/models"
	id "didledger/pkg/domain"
)

type RecordResponse struct {
	CredentialID string    `json:"credential_id"`
	Status       string    `json:"status"`
	Issuer       string    `json:"issuer"`
	IssuedAt     time.Time `json:"issued_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toRecordResponse(r *models.Record) RecordResponse {
	return RecordResponse{
		CredentialID: r.CredentialID.String(),
		Status:       r.Status.String(),
		Issuer:       r.Issuer.String(),
		IssuedAt:     r.IssuedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type StatusResponse struct {
	CredentialID string `json:"credential_id"`
	Status       string `json:"status"`
}

type BatchStatusResponse struct {
	Statuses map[string]string `json:"statuses"`
}

func toBatchResponse(statuses map[id.CredentialID]models.Status) BatchStatusResponse {
	out := make(map[string]string, len(statuses))
	for credentialID, status := range statuses {
		out[credentialID.String()] = status.String()
	}
	return BatchStatusResponse{Statuses: out}
}
