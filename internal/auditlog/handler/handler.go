package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"didledger/internal/auditlog/models"
	"didledger/internal/auditlog/service"
	dErrors "didledger/pkg/domain-errors"
	"didledger/pkg/platform/httputil"
	"didledger/pkg/requestcontext"
)

const defaultPageSize = 50

// Service is the read side of the audit log. Appends are reachable only from
// the registries in process.
type Service interface {
	GetEntry(ctx context.Context, sequence uint64) (*models.Entry, error)
	EntryCount(ctx context.Context) (uint64, error)
	ListEntries(ctx context.Context, from uint64, limit int) ([]models.Entry, error)
	Verify(ctx context.Context) (*service.VerifyResult, error)
}

// Handler serves audit log reads.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/entries", h.HandleListEntries)
	r.Get("/audit/entries/{sequence}", h.HandleGetEntry)
	r.Get("/audit/count", h.HandleCount)
	r.Get("/audit/verify", h.HandleVerify)
}

// HandleGetEntry handles GET /audit/entries/{sequence}.
func (h *Handler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sequence, err := parseSequence(chi.URLParam(r, "sequence"), "sequence")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entry, err := h.service.GetEntry(ctx, sequence)
	if err != nil {
		h.logError(ctx, "get audit entry failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// HandleListEntries handles GET /audit/entries?from=&limit=.
func (h *Handler) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var from uint64
	if raw := query.Get("from"); raw != "" {
		parsed, err := parseSequence(raw, "from")
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		from = parsed
	}
	limit := defaultPageSize
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.service.ListEntries(ctx, from, limit)
	if err != nil {
		h.logError(ctx, "list audit entries failed", err)
		httputil.WriteError(w, err)
		return
	}
	resp := ListResponse{Entries: entries, Next: from}
	if n := len(entries); n > 0 {
		resp.Next = entries[n-1].Sequence + 1
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleCount handles GET /audit/count.
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.service.EntryCount(ctx)
	if err != nil {
		h.logError(ctx, "count audit entries failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: count})
}

// HandleVerify handles GET /audit/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.service.Verify(ctx)
	if err != nil {
		h.logError(ctx, "verify audit chain failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// logError records failures other than lookups of absent entries.
func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}

func parseSequence(raw, field string) (uint64, error) {
	sequence, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, field+" must be a non-negative integer")
	}
	return sequence, nil
}
