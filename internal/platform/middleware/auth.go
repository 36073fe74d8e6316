package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "didledger/pkg/domain"
	dErrors "didledger/pkg/domain-errors"
	"didledger/pkg/platform/httputil"
	"didledger/pkg/requestcontext"
)

// CallerValidator turns a bearer token into the caller identity.
type CallerValidator interface {
	ValidateCaller(tokenString string) (id.Identity, error)
}

const bearerPrefix = "Bearer "

// RequireCaller rejects requests without a valid bearer token and stores the
// token subject as the request's caller.
func RequireCaller(validator CallerValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthenticated request - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "missing or invalid Authorization header"))
				return
			}

			caller, err := validator.ValidateCaller(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthenticated request - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				if !dErrors.HasCode(err, dErrors.CodeUnauthenticated) {
					err = dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
				}
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}
