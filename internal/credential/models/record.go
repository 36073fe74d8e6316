package models

import (
	"time"

	id "didledger/pkg/domain"
	dErrors "didledger/pkg/domain-errors"
)

// Record tracks the status of one credential.
//
// Invariants:
//   - CredentialID is immutable and tracked at most once
//   - Status is active, suspended or revoked; never unknown
//   - Issuer is the only identity allowed to change Status
//   - Any transition among the three statuses is allowed
type Record struct {
	CredentialID id.CredentialID `json:"credential_id"`
	Status       Status          `json:"status"`
	Issuer       id.Identity     `json:"issuer"`
	IssuedAt     time.Time       `json:"issued_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewRecord starts tracking a credential. An empty status defaults to active.
func NewRecord(credentialID id.CredentialID, issuer id.Identity, status Status, now time.Time) (*Record, error) {
	if credentialID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credential id cannot be empty")
	}
	if issuer.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "issuer cannot be empty")
	}
	if status == "" {
		status = StatusActive
	}
	if !status.IsSettable() {
		return nil, dErrors.New(dErrors.CodeValidation, "initial status must be active, suspended or revoked")
	}
	return &Record{
		CredentialID: credentialID,
		Status:       status,
		Issuer:       issuer,
		IssuedAt:     now,
		UpdatedAt:    now,
	}, nil
}

// CanSetStatus checks that caller may move the record to status.
func (r *Record) CanSetStatus(caller id.Identity, status Status) error {
	if caller.IsNil() || caller != r.Issuer {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the credential issuer")
	}
	if !status.IsSettable() {
		return dErrors.New(dErrors.CodeValidation, "status must be active, suspended or revoked")
	}
	return nil
}

// ApplyStatus sets the status.
// Must only be called after CanSetStatus returns nil.
func (r *Record) ApplyStatus(status Status, now time.Time) {
	r.Status = status
	r.UpdatedAt = now
}
