// Package service implements the DID registry: registration, key rotation,
// revocation and resolution of DID documents.
//
// Every mutation runs in one ledger transaction together with the audit
// entry it produces. The caller is an explicit parameter; the service never
// reads it from the context.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	auditmodels "didledger/internal/auditlog/models"
	"didledger/internal/did/models"
	"didledger/internal/ledger"
	"didledger/internal/platform/metrics"
	id "didledger/pkg/domain"
	dErrors "didledger/pkg/domain-errors"
	"didledger/pkg/platform/sentinel"
)

var tracer = otel.Tracer("didledger/did")

// Store persists DID documents.
type Store interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByDID(ctx context.Context, did id.DID) (*models.Document, error)
	Execute(ctx context.Context, did id.DID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error)
}

// AuditRecorder appends to the audit log.
type AuditRecorder interface {
	RecordEvent(ctx context.Context, eventType auditmodels.EventType, subjectID string, actor, source id.Identity) (uint64, error)
}

// DocumentCache fronts resolution. Fill only populates an absent key; Put
// overwrites and is called after commit with the latest document.
type DocumentCache interface {
	LookupDocument(ctx context.Context, did id.DID) (*models.Document, bool)
	FillDocument(ctx context.Context, doc *models.Document)
	PutDocument(ctx context.Context, doc *models.Document)
}

// Service is the DID registry.
type Service struct {
	store   Store
	ledger  ledger.Ledger
	audit   AuditRecorder
	source  id.Identity
	cache   DocumentCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithCache(cache DocumentCache) Option {
	return func(s *Service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs the registry. source is the identity the registry presents
// to the audit log.
func New(store Store, l ledger.Ledger, audit AuditRecorder, source id.Identity, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("did store is required")
	}
	if l == nil {
		return nil, errors.New("ledger is required")
	}
	if audit == nil {
		return nil, errors.New("audit recorder is required")
	}
	if source.IsNil() {
		return nil, errors.New("registry source identity is required")
	}
	s := &Service{
		store:  store,
		ledger: l,
		audit:  audit,
		source: source,
		cache:  noopCache{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Source returns the identity the registry presents to the audit log.
func (s *Service) Source() id.Identity {
	return s.source
}

// RegisterDID creates an active document controlled by caller.
func (s *Service) RegisterDID(ctx context.Context, did id.DID, publicKey []byte, keyType string, caller id.Identity) (*models.Document, error) {
	ctx, span := s.start(ctx, "did.RegisterDID", did)
	defer span.End()

	var registered *models.Document
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		doc, err := models.NewDocument(did, caller, publicKey, keyType, ledger.Timestamp(txCtx))
		if err != nil {
			return err
		}
		if err := s.store.Create(txCtx, doc); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeDuplicateDID, "DID already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register DID")
		}
		if _, err := s.audit.RecordEvent(txCtx, auditmodels.EventDIDRegistered, did.String(), caller, s.source); err != nil {
			return err
		}
		s.putAfterCommit(txCtx, doc)
		registered = doc
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "register", err)
	}

	s.succeed(ctx, "register", "DID registered", did, caller)
	return registered.Clone(), nil
}

// RotateKey replaces the key material of an active document.
func (s *Service) RotateKey(ctx context.Context, did id.DID, publicKey []byte, keyType string, caller id.Identity) (*models.Document, error) {
	ctx, span := s.start(ctx, "did.RotateKey", did)
	defer span.End()

	if err := models.ValidateKey(publicKey, keyType); err != nil {
		return nil, s.fail(ctx, span, "rotate", err)
	}

	var rotated *models.Document
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		now := ledger.Timestamp(txCtx)
		doc, err := s.store.Execute(txCtx, did,
			func(d *models.Document) error { return d.CanRotate(caller) },
			func(d *models.Document) { d.ApplyRotation(publicKey, keyType, now) },
		)
		if err != nil {
			return wrapStoreErr(err)
		}
		if _, err := s.audit.RecordEvent(txCtx, auditmodels.EventDIDKeyRotated, did.String(), caller, s.source); err != nil {
			return err
		}
		s.putAfterCommit(txCtx, doc)
		rotated = doc
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "rotate", err)
	}

	s.succeed(ctx, "rotate", "DID key rotated", did, caller)
	return rotated.Clone(), nil
}

// RevokeDID permanently deactivates a document.
func (s *Service) RevokeDID(ctx context.Context, did id.DID, caller id.Identity) error {
	ctx, span := s.start(ctx, "did.RevokeDID", did)
	defer span.End()

	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		now := ledger.Timestamp(txCtx)
		doc, err := s.store.Execute(txCtx, did,
			func(d *models.Document) error { return d.CanRevoke(caller) },
			func(d *models.Document) { d.ApplyRevocation(now) },
		)
		if err != nil {
			return wrapStoreErr(err)
		}
		if _, err := s.audit.RecordEvent(txCtx, auditmodels.EventDIDRevoked, did.String(), caller, s.source); err != nil {
			return err
		}
		s.putAfterCommit(txCtx, doc)
		return nil
	})
	if err != nil {
		return s.fail(ctx, span, "revoke", err)
	}

	s.succeed(ctx, "revoke", "DID revoked", did, caller)
	return nil
}

// GetDIDDocument resolves a DID. Revoked documents resolve with IsActive false.
func (s *Service) GetDIDDocument(ctx context.Context, did id.DID) (*models.Document, error) {
	ctx, span := s.start(ctx, "did.GetDIDDocument", did)
	defer span.End()

	if doc, ok := s.cache.LookupDocument(ctx, did); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return doc, nil
	}
	var doc *models.Document
	// Fill under the read view so a concurrent commit's Put lands after it.
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		found, err := s.store.FindByDID(ctx, did)
		if err != nil {
			return err
		}
		s.cache.FillDocument(ctx, found)
		doc = found
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "resolve", wrapStoreErr(err))
	}
	return doc, nil
}

func (s *Service) putAfterCommit(txCtx context.Context, doc *models.Document) {
	committed := doc.Clone()
	ledger.AfterCommit(txCtx, func(ctx context.Context) {
		s.cache.PutDocument(ctx, committed)
	})
}

func (s *Service) start(ctx context.Context, name string, did id.DID) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("did", did.String())))
}

func (s *Service) succeed(ctx context.Context, operation, msg string, did id.DID, caller id.Identity) {
	s.metrics.ObserveRegistryOperation("did", operation, "ok")
	s.logger.InfoContext(ctx, msg, "did", did, "caller", caller)
}

func (s *Service) fail(ctx context.Context, span trace.Span, operation string, err error) error {
	code := dErrors.CodeOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(code))
	s.metrics.ObserveRegistryOperation("did", operation, string(code))
	if code == dErrors.CodeInternal {
		s.logger.ErrorContext(ctx, "did registry operation failed", "operation", operation, "error", err)
	}
	return err
}

// wrapStoreErr passes coded errors from validate through and maps store
// sentinels to codes.
func wrapStoreErr(err error) error {
	var de *dErrors.Error
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "DID not found")
	case errors.As(err, &de):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "DID store failure")
	}
}

type noopCache struct{}

func (noopCache) LookupDocument(context.Context, id.DID) (*models.Document, bool) { return nil, false }
func (noopCache) FillDocument(context.Context, *models.Document)                  {}
func (noopCache) PutDocument(context.Context, *models.Document)                   {}
