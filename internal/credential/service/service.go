// Package service implements the credential status registry. Issuers start
// tracking a credential and alone may change its status; anyone may read it.
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
	"didledger/internal/credential/models"
	"didledger/internal/ledger"
	"didledger/internal/platform/metrics"
	id "didledger/pkg/domain"
	dErrors "didledger/pkg/domain-errors"
	"didledger/pkg/platform/sentinel"
)

var tracer = otel.Tracer("didledger/credential")

// maxBatchSize bounds GetStatuses.
const maxBatchSize = 100

// Store persists status records.
type Store interface {
	Create(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Record, error)
	FindMany(ctx context.Context, ids []id.CredentialID) (map[id.CredentialID]models.Record, error)
	Execute(ctx context.Context, credentialID id.CredentialID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error)
}

// AuditRecorder appends to the audit log.
type AuditRecorder interface {
	RecordEvent(ctx context.Context, eventType auditmodels.EventType, subjectID string, actor, source id.Identity) (uint64, error)
}

// StatusCache fronts GetStatus. Fill only populates an absent key; Put
// overwrites and is called after commit.
type StatusCache interface {
	LookupStatus(ctx context.Context, credentialID id.CredentialID) (models.Status, bool)
	FillStatus(ctx context.Context, credentialID id.CredentialID, status models.Status)
	PutStatus(ctx context.Context, credentialID id.CredentialID, status models.Status)
}

// Service is the credential status registry.
type Service struct {
	store   Store
	ledger  ledger.Ledger
	audit   AuditRecorder
	source  id.Identity
	cache   StatusCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithCache(cache StatusCache) Option {
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
		return nil, errors.New("credential store is required")
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

// IssueCredentialStatus starts tracking a credential with issuer as its sole
// authority. An empty initial status means active.
func (s *Service) IssueCredentialStatus(ctx context.Context, credentialID id.CredentialID, issuer id.Identity, initial models.Status) (*models.Record, error) {
	ctx, span := s.start(ctx, "credential.IssueCredentialStatus", credentialID)
	defer span.End()

	var issued *models.Record
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		record, err := models.NewRecord(credentialID, issuer, initial, ledger.Timestamp(txCtx))
		if err != nil {
			return err
		}
		if err := s.store.Create(txCtx, record); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeDuplicateCredential, "credential status already tracked")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue credential status")
		}
		if _, err := s.audit.RecordEvent(txCtx, auditmodels.EventCredentialStatusIssued, credentialID.String(), issuer, s.source); err != nil {
			return err
		}
		s.putAfterCommit(txCtx, record)
		issued = record
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "issue", err)
	}

	s.succeed(ctx, "issue", "credential status issued", issued)
	return issued, nil
}

// SetCredentialStatus moves a tracked credential to status. Only the issuer
// may do so; any transition among the settable statuses is allowed.
func (s *Service) SetCredentialStatus(ctx context.Context, credentialID id.CredentialID, status models.Status, caller id.Identity) (*models.Record, error) {
	ctx, span := s.start(ctx, "credential.SetCredentialStatus", credentialID)
	defer span.End()
	span.SetAttributes(attribute.String("status", status.String()))

	var updated *models.Record
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		now := ledger.Timestamp(txCtx)
		record, err := s.store.Execute(txCtx, credentialID,
			func(r *models.Record) error { return r.CanSetStatus(caller, status) },
			func(r *models.Record) { r.ApplyStatus(status, now) },
		)
		if err != nil {
			return wrapStoreErr(err)
		}
		if _, err := s.audit.RecordEvent(txCtx, auditmodels.EventCredentialStatusChanged, credentialID.String(), caller, s.source); err != nil {
			return err
		}
		s.putAfterCommit(txCtx, record)
		updated = record
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "set_status", err)
	}

	s.succeed(ctx, "set_status", "credential status changed", updated)
	return updated, nil
}

// GetStatus reports the status of a credential, or StatusUnknown when it is
// not tracked. Errors are infrastructure failures only.
func (s *Service) GetStatus(ctx context.Context, credentialID id.CredentialID) (models.Status, error) {
	ctx, span := s.start(ctx, "credential.GetStatus", credentialID)
	defer span.End()

	if status, ok := s.cache.LookupStatus(ctx, credentialID); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return status, nil
	}
	status := models.StatusUnknown
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		record, err := s.store.FindByID(ctx, credentialID)
		if err != nil {
			return err
		}
		s.cache.FillStatus(ctx, credentialID, record.Status)
		status = record.Status
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.StatusUnknown, nil
		}
		return "", s.fail(ctx, span, "get_status", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential status"))
	}
	return status, nil
}

// GetRecord returns the full record of a tracked credential.
func (s *Service) GetRecord(ctx context.Context, credentialID id.CredentialID) (*models.Record, error) {
	var record *models.Record
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.store.FindByID(ctx, credentialID)
		return err
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return record, nil
}

// GetStatuses resolves many credentials in one read. Untracked ids map to
// StatusUnknown.
func (s *Service) GetStatuses(ctx context.Context, ids []id.CredentialID) (map[id.CredentialID]models.Status, error) {
	ctx, span := tracer.Start(ctx, "credential.GetStatuses", trace.WithAttributes(attribute.Int("count", len(ids))))
	defer span.End()

	if len(ids) > maxBatchSize {
		return nil, s.fail(ctx, span, "get_statuses", dErrors.New(dErrors.CodeValidation, "at most 100 credential ids per batch"))
	}
	var records map[id.CredentialID]models.Record
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.FindMany(ctx, ids)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, span, "get_statuses", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential statuses"))
	}
	out := make(map[id.CredentialID]models.Status, len(ids))
	for _, credentialID := range ids {
		if record, ok := records[credentialID]; ok {
			out[credentialID] = record.Status
		} else {
			out[credentialID] = models.StatusUnknown
		}
	}
	return out, nil
}

func (s *Service) putAfterCommit(txCtx context.Context, record *models.Record) {
	credentialID, status := record.CredentialID, record.Status
	ledger.AfterCommit(txCtx, func(ctx context.Context) {
		s.cache.PutStatus(ctx, credentialID, status)
	})
}

func (s *Service) start(ctx context.Context, name string, credentialID id.CredentialID) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("credential_id", credentialID.String())))
}

func (s *Service) succeed(ctx context.Context, operation, msg string, record *models.Record) {
	s.metrics.ObserveRegistryOperation("credential", operation, "ok")
	s.logger.InfoContext(ctx, msg,
		"credential_id", record.CredentialID,
		"status", record.Status,
		"issuer", record.Issuer,
	)
}

func (s *Service) fail(ctx context.Context, span trace.Span, operation string, err error) error {
	code := dErrors.CodeOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(code))
	s.metrics.ObserveRegistryOperation("credential", operation, string(code))
	if code == dErrors.CodeInternal {
		s.logger.ErrorContext(ctx, "credential registry operation failed", "operation", operation, "error", err)
	}
	return err
}

// wrapStoreErr passes coded errors from validate through and maps store
// sentinels to codes.
func wrapStoreErr(err error) error {
	var de *dErrors.Error
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "credential status not tracked")
	case errors.As(err, &de):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "credential store failure")
	}
}

type noopCache struct{}

func (noopCache) LookupStatus(context.Context, id.CredentialID) (models.Status, bool) {
	return "", false
}
func (noopCache) FillStatus(context.Context, id.CredentialID, models.Status) {}
func (noopCache) PutStatus(context.Context, id.CredentialID, models.Status)  {}
