package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"didledger/internal/credential/models"
	id "didledger/pkg/domain"
	dErrors "didledger/pkg/domain-errors"
	"didledger/pkg/platform/httputil"
	"didledger/pkg/requestcontext"
)

// Service is the credential status registry as seen by the transport.
type Service interface {
	IssueCredentialStatus(ctx context.Context, credentialID id.CredentialID, issuer id.Identity, initial models.Status) (*models.Record, error)
	SetCredentialStatus(ctx context.Context, credentialID id.CredentialID, status models.Status, caller id.Identity) (*models.Record, error)
	GetStatus(ctx context.Context, credentialID id.CredentialID) (models.Status, error)
	GetRecord(ctx context.Context, credentialID id.CredentialID) (*models.Record, error)
	GetStatuses(ctx context.Context, ids []id.CredentialID) (map[id.CredentialID]models.Status, error)
}

// Handler wires credential status endpoints to the registry.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts unauthenticated status reads.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/credentials/status:batch", h.HandleBatchStatus)
	r.Get("/credentials/{id}", h.HandleGetRecord)
	r.Get("/credentials/{id}/status", h.HandleGetStatus)
}

// RegisterProtected mounts issuer operations. The router must authenticate
// the caller before these handlers run.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/credentials", h.HandleIssue)
	r.Put("/credentials/{id}/status", h.HandleSetStatus)
}

// HandleIssue handles POST /credentials.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := requireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.IssueCredentialStatus(ctx, req.parsedID, caller, req.parsedStatus)
	if err != nil {
		h.logFailure(ctx, "issue credential status failed", req.CredentialID, caller, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRecordResponse(record))
}

// HandleSetStatus handles PUT /credentials/{id}/status.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := requireCaller(w, ctx)
	if !ok {
		return
	}
	credentialID, err := credentialParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.SetCredentialStatus(ctx, credentialID, req.parsedStatus, caller)
	if err != nil {
		h.logFailure(ctx, "set credential status failed", credentialID.String(), caller, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

// HandleGetStatus handles GET /credentials/{id}/status. Untracked
// credentials answer 200 with status "unknown".
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, err := credentialParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.service.GetStatus(ctx, credentialID)
	if err != nil {
		h.logFailure(ctx, "get credential status failed", credentialID.String(), "", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{CredentialID: credentialID.String(), Status: status.String()})
}

// HandleGetRecord handles GET /credentials/{id}.
func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, err := credentialParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.service.GetRecord(ctx, credentialID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logFailure(ctx, "get credential record failed", credentialID.String(), "", err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

// HandleBatchStatus handles POST /credentials/status:batch.
func (h *Handler) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[BatchStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	statuses, err := h.service.GetStatuses(ctx, req.parsedIDs)
	if err != nil {
		h.logger.ErrorContext(ctx, "batch credential status failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBatchResponse(statuses))
}

func (h *Handler) logFailure(ctx context.Context, msg, credentialID string, caller id.Identity, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"credential_id", credentialID,
		"caller", caller,
		"error", err,
	)
}

func requireCaller(w http.ResponseWriter, ctx context.Context) (id.Identity, bool) {
	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "authentication required"))
		return "", false
	}
	return caller, true
}

// credentialParam reads the {id} path segment. chi matches on RawPath when
// the request carries one (an escaped "/" or similar), and only then is the
// parameter still escaped; otherwise net/http has already decoded it once.
func credentialParam(r *http.Request) (id.CredentialID, error) {
	raw := chi.URLParam(r, "id")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(raw)
		if err != nil {
			return "", dErrors.New(dErrors.CodeValidation, "credential id is not a valid path segment")
		}
		raw = unescaped
	}
	return id.ParseCredentialID(raw)
}
