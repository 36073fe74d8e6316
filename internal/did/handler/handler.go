package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"didledger/internal/did/models"
	id "didledger/pkg/domain"
	dErrors "didledger/pkg/domain-errors"
	"didledger/pkg/platform/httputil"
	"didledger/pkg/requestcontext"
)

// Service is the DID registry as seen by the transport.
type Service interface {
	RegisterDID(ctx context.Context, did id.DID, publicKey []byte, keyType string, caller id.Identity) (*models.Document, error)
	RotateKey(ctx context.Context, did id.DID, publicKey []byte, keyType string, caller id.Identity) (*models.Document, error)
	RevokeDID(ctx context.Context, did id.DID, caller id.Identity) error
	GetDIDDocument(ctx context.Context, did id.DID) (*models.Document, error)
}

// Handler wires DID endpoints to the registry.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts unauthenticated resolution.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/dids/{did}", h.HandleGetDocument)
}

// RegisterProtected mounts mutations. The router must authenticate the
// caller before these handlers run.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/dids", h.HandleRegister)
	r.Post("/dids/{did}/keys", h.HandleRotateKey)
	r.Post("/dids/{did}/revoke", h.HandleRevoke)
}

// HandleRegister handles POST /dids.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := requireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.service.RegisterDID(ctx, req.parsedDID, req.parsedKey, req.KeyType, caller)
	if err != nil {
		h.logFailure(ctx, "register DID failed", req.DID, caller, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// HandleRotateKey handles POST /dids/{did}/keys.
func (h *Handler) HandleRotateKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := requireCaller(w, ctx)
	if !ok {
		return
	}
	did, err := didParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RotateKeyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.service.RotateKey(ctx, did, req.parsedKey, req.KeyType, caller)
	if err != nil {
		h.logFailure(ctx, "rotate key failed", did.String(), caller, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// HandleRevoke handles POST /dids/{did}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := requireCaller(w, ctx)
	if !ok {
		return
	}
	did, err := didParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.RevokeDID(ctx, did, caller); err != nil {
		h.logFailure(ctx, "revoke DID failed", did.String(), caller, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RevokeResponse{DID: did.String(), Revoked: true})
}

// HandleGetDocument handles GET /dids/{did}.
func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, err := didParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.GetDIDDocument(ctx, did)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logFailure(ctx, "resolve DID failed", did.String(), "", err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) logFailure(ctx context.Context, msg, did string, caller id.Identity, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"did", did,
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

// didParam reads the {did} path segment, decoded exactly once. A DID that
// itself contains pct-encoded characters travels with its "%" escaped as %25.
func didParam(r *http.Request) (id.DID, error) {
	raw := chi.URLParam(r, "did")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(raw)
		if err != nil {
			return "", dErrors.New(dErrors.CodeValidation, "did is not a valid path segment")
		}
		raw = unescaped
	}
	return id.ParseDID(raw)
}
