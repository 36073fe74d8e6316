package handler

import (
	"strings"

	"didledger/internal/credential/models"
	id "didledger/pkg/domain"
	dErrors "didledger/pkg/domain-errors"
)

// IssueRequest is the body of POST /credentials. The caller becomes the
// issuer.
type IssueRequest struct {
	CredentialID string `json:"credential_id" validate:"required,max=512"`
	Status       string `json:"status,omitempty" validate:"omitempty,oneof=active suspended revoked"`

	parsedID     id.CredentialID
	parsedStatus models.Status
}

func (r *IssueRequest) Normalize() {
	r.CredentialID = strings.TrimSpace(r.CredentialID)
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
}

func (r *IssueRequest) Validate() error {
	credentialID, err := id.ParseCredentialID(r.CredentialID)
	if err != nil {
		return err
	}
	r.parsedID = credentialID
	if r.Status != "" {
		status, err := models.ParseStatus(r.Status)
		if err != nil {
			return err
		}
		r.parsedStatus = status
	}
	return nil
}

// SetStatusRequest is the body of PUT /credentials/{id}/status.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended revoked"`

	parsedStatus models.Status
}

func (r *SetStatusRequest) Normalize() {
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
}

func (r *SetStatusRequest) Validate() error {
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	r.parsedStatus = status
	return nil
}

// BatchStatusRequest is the body of POST /credentials/status:batch.
type BatchStatusRequest struct {
	CredentialIDs []string `json:"credential_ids" validate:"required,min=1,max=100,dive,required,max=512"`

	parsedIDs []id.CredentialID
}

func (r *BatchStatusRequest) Normalize() {
	for i := range r.CredentialIDs {
		r.CredentialIDs[i] = strings.TrimSpace(r.CredentialIDs[i])
	}
}

func (r *BatchStatusRequest) Validate() error {
	seen := make(map[id.CredentialID]struct{}, len(r.CredentialIDs))
	r.parsedIDs = make([]id.CredentialID, 0, len(r.CredentialIDs))
	for _, raw := range r.CredentialIDs {
		credentialID, err := id.ParseCredentialID(raw)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "credential_ids contains an invalid id")
		}
		if _, dup := seen[credentialID]; dup {
			continue
		}
		seen[credentialID] = struct{}{}
		r.parsedIDs = append(r.parsedIDs, credentialID)
	}
	return nil
}
