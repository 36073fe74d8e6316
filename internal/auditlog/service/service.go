// Package service implements the audit log: an append-only, gapless,
// hash-chained record of every registry mutation.
//
// The log is bound at construction to the identities of the DID registry and
// the credential status registry. RecordEvent rejects any other source before
// touching the store, so a rejected submission never consumes a sequence.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"didledger/internal/auditlog/models"
	"didledger/internal/ledger"
	"didledger/internal/platform/metrics"
	id "didledger/pkg/domain"
	dErrors "didledger/pkg/domain-errors"
	"didledger/pkg/platform/sentinel"
)

var tracer = otel.Tracer("didledger/auditlog")

// Store is the append-only persistence of audit entries.
type Store interface {
	Append(ctx context.Context, entry models.Entry) error
	Get(ctx context.Context, sequence uint64) (models.Entry, error)
	Count(ctx context.Context) (uint64, error)
	Last(ctx context.Context) (models.Entry, error)
	List(ctx context.Context, from uint64, limit int) ([]models.Entry, error)
}

// Publisher receives entries after the transaction that appended them commits.
type Publisher interface {
	Publish(ctx context.Context, entry models.Entry) error
}

// Service is the audit log.
type Service struct {
	store        Store
	ledger       ledger.Ledger
	didSource    id.Identity
	statusSource id.Identity
	publisher    Publisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
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

// New binds the log to its two sources. Both must be set and distinct.
func New(store Store, l ledger.Ledger, didRegistrySource, credentialStatusRegistrySource id.Identity, opts ...Option) (*Service, error) {
	if didRegistrySource.IsNil() || credentialStatusRegistrySource.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit log requires both registry sources")
	}
	if didRegistrySource == credentialStatusRegistrySource {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit log sources must be distinct")
	}
	s := &Service{
		store:        store,
		ledger:       l,
		didSource:    didRegistrySource,
		statusSource: credentialStatusRegistrySource,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sources returns the DID registry and credential status registry identities.
func (s *Service) Sources() (didRegistry, credentialStatusRegistry id.Identity) {
	return s.didSource, s.statusSource
}

func (s *Service) isSource(source id.Identity) bool {
	return source == s.didSource || source == s.statusSource
}

// RecordEvent appends an entry and returns its sequence. Called inside a
// registry transaction it joins that transaction, so the entry commits or
// rolls back with the mutation it records.
func (s *Service) RecordEvent(ctx context.Context, eventType models.EventType, subjectID string, actor, source id.Identity) (uint64, error) {
	ctx, span := tracer.Start(ctx, "auditlog.RecordEvent", trace.WithAttributes(
		attribute.String("event_type", eventType.String()),
		attribute.String("source", source.String()),
	))
	defer span.End()

	if !s.isSource(source) {
		s.logger.WarnContext(ctx, "audit event rejected from unauthorized source",
			"source", source,
			"event_type", eventType,
		)
		err := dErrors.New(dErrors.CodeUnauthorizedSource, "source is not a linked registry")
		s.fail(span, "record", err)
		return 0, err
	}
	if strings.TrimSpace(string(eventType)) == "" || strings.TrimSpace(subjectID) == "" {
		err := dErrors.New(dErrors.CodeValidation, "event type and subject are required")
		s.fail(span, "record", err)
		return 0, err
	}

	var appended models.Entry
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		prevHash := models.GenesisHash
		next := uint64(0)
		last, err := s.store.Last(txCtx)
		switch {
		case err == nil:
			prevHash = last.Hash
			next = last.Sequence + 1
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit tail")
		}

		entry := models.Entry{
			Sequence:  next,
			EventType: eventType,
			SubjectID: subjectID,
			Actor:     actor,
			Source:    source,
			Timestamp: ledger.Timestamp(txCtx),
			PrevHash:  prevHash,
		}
		entry.Seal()
		if err := s.store.Append(txCtx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
		}
		appended = entry
		ledger.AfterCommit(txCtx, s.afterCommit(entry))
		return nil
	})
	if err != nil {
		s.fail(span, "record", err)
		return 0, err
	}
	span.SetAttributes(attribute.Int64("sequence", int64(appended.Sequence)))
	s.metrics.ObserveRegistryOperation("auditlog", "record", "ok")
	return appended.Sequence, nil
}

func (s *Service) afterCommit(entry models.Entry) func(context.Context) {
	return func(ctx context.Context) {
		s.metrics.IncrementAuditEntries(entry.EventType.String())
		s.logger.InfoContext(ctx, "audit entry recorded",
			"sequence", entry.Sequence,
			"event_type", entry.EventType,
			"subject_id", entry.SubjectID,
			"actor", entry.Actor,
			"source", entry.Source,
		)
		if s.publisher == nil {
			return
		}
		if err := s.publisher.Publish(ctx, entry); err != nil {
			s.logger.WarnContext(ctx, "audit entry not published",
				"sequence", entry.Sequence,
				"error", err,
			)
		}
	}
}

// GetEntry returns the entry at sequence.
func (s *Service) GetEntry(ctx context.Context, sequence uint64) (*models.Entry, error) {
	var entry models.Entry
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.store.Get(ctx, sequence)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "audit entry not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit entry")
	}
	return &entry, nil
}

// EntryCount returns the number of entries, which is also the next sequence.
func (s *Service) EntryCount(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.store.Count(ctx)
		return err
	})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count audit entries")
	}
	return count, nil
}

// ListEntries returns up to limit entries starting at sequence from.
func (s *Service) ListEntries(ctx context.Context, from uint64, limit int) ([]models.Entry, error) {
	var entries []models.Entry
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		entries, err = s.store.List(ctx, from, limit)
		return err
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

func (s *Service) fail(span trace.Span, operation string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	s.metrics.ObserveRegistryOperation("auditlog", operation, string(dErrors.CodeOf(err)))
}
