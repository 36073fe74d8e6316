package models

import (
	"strings"

	dErrors "didledger/pkg/domain-errors"
)

// Status is the lifecycle state of a tracked credential.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusRevoked   Status = "revoked"

	// StatusUnknown is reported for credentials that were never issued. It is
	// never stored.
	StatusUnknown Status = "unknown"
)

// ParseStatus accepts a settable status, case-insensitively.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsSettable() {
		return "", dErrors.New(dErrors.CodeValidation, "status must be one of: active, suspended, revoked")
	}
	return status, nil
}

// IsSettable reports whether an issuer may assign s.
func (s Status) IsSettable() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusRevoked:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }
