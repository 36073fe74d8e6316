// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values set by middleware.
//
// The caller identity stored here is read by handlers only. Services never
// consult it: handlers pass the caller explicitly into every mutating call.
//
// Usage in handlers (read values):
//
//	caller := requestcontext.Caller(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "didledger/pkg/domain"
)

type (
	callerKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Caller returns the authenticated caller identity, or the zero Identity.
func Caller(ctx context.Context) id.Identity {
	if caller, ok := ctx.Value(callerKey{}).(id.Identity); ok {
		return caller
	}
	return ""
}

// WithCaller injects the authenticated caller identity.
func WithCaller(ctx context.Context, caller id.Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
