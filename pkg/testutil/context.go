package testutil

import (
	"net/http"

	id "didledger/pkg/domain"
	"didledger/pkg/requestcontext"
)

// WithCaller attaches an authenticated caller to the request, as the caller
// middleware does after validating a bearer token. Invalid identities are
// ignored so tests can exercise the unauthenticated path.
func WithCaller(req *http.Request, caller string) *http.Request {
	parsed, err := id.ParseIdentity(caller)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), parsed))
}

// WithBearer sets the Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
