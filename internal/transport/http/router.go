// Package httptransport assembles the public HTTP surface: the middleware
// stack, the module handlers and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"didledger/internal/platform/metrics"
	"didledger/internal/platform/middleware"
	dErrors "didledger/pkg/domain-errors"
	"didledger/pkg/platform/httputil"
)

// ModuleHandler is implemented by the DID and credential handlers.
type ModuleHandler interface {
	RegisterPublic(r chi.Router)
	RegisterProtected(r chi.Router)
}

// ReadOnlyHandler is implemented by the audit handler.
type ReadOnlyHandler interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config carries everything NewRouter wires.
type Config struct {
	Modules        []ModuleHandler
	ReadOnly       []ReadOnlyHandler
	Validator      middleware.CallerValidator
	HealthChecks   map[string]HealthCheck
	MetricsHandler http.Handler
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

// NewRouter wires every endpoint. Reads are public; mutations sit behind
// bearer token authentication.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/healthz", healthHandler(cfg.HealthChecks, logger))
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(middleware.ContentTypeJSON)

		for _, h := range cfg.ReadOnly {
			h.Register(r)
		}
		for _, h := range cfg.Modules {
			r.Group(h.RegisterPublic)
		}
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCaller(cfg.Validator, logger))
			for _, h := range cfg.Modules {
				h.RegisterProtected(r)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Error:            string(dErrors.CodeBadRequest),
			ErrorDescription: "method not allowed",
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
