// Package domainerrors carries coded errors across layers. Services return
// them, handlers translate the code into a transport status.
//
// Codes fall into two groups:
//   - generic codes (bad_request, validation_error, not_found, internal_error, ...)
//   - registry rejection reasons surfaced verbatim to callers
//     (duplicate_did, inactive_did, unauthorized_source, ...)
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies the kind of failure.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthenticated    Code = "unauthenticated"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"

	// Registry rejection reasons.
	CodeDuplicateDID        Code = "duplicate_did"
	CodeDuplicateCredential Code = "duplicate_credential"
	CodeUnauthorized        Code = "unauthorized"
	CodeAlreadyRevoked      Code = "already_revoked"
	CodeInactiveDID         Code = "inactive_did"
	CodeUnauthorizedSource  Code = "unauthorized_source"
)

// Error is a coded domain error. Message is safe to show to callers except
// for CodeInternal, where transports should omit it.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeUnauthorized, CodeUnauthorizedSource:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateDID, CodeDuplicateCredential, CodeAlreadyRevoked, CodeInactiveDID:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
