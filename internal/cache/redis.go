// Package cache implements the resolution cache in front of DID documents and
// credential statuses. Failures are logged and counted, never returned: a
// broken cache degrades to store reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	credmodels "didledger/internal/credential/models"
	didmodels "didledger/internal/did/models"
	"didledger/internal/platform/metrics"
	id "didledger/pkg/domain"
)

const (
	documentKeyPrefix = "didledger:did:"
	statusKeyPrefix   = "didledger:credential-status:"

	kindDocument = "did_document"
	kindStatus   = "credential_status"
)

// Redis implements did/service.DocumentCache and credential/service.StatusCache.
type Redis struct {
	client  redis.Cmdable
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Redis)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Redis) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Redis) {
		r.metrics = m
	}
}

// NewRedis builds a cache whose entries expire after ttl.
func NewRedis(client redis.Cmdable, ttl time.Duration, opts ...Option) *Redis {
	r := &Redis{
		client: client,
		ttl:    ttl,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// LookupDocument returns a cached document.
func (r *Redis) LookupDocument(ctx context.Context, did id.DID) (*didmodels.Document, bool) {
	var doc didmodels.Document
	if !r.get(ctx, kindDocument, documentKeyPrefix+did.String(), &doc) {
		return nil, false
	}
	return &doc, true
}

// FillDocument stores doc only if no entry exists, so a slow reader cannot
// overwrite a newer document written after commit.
func (r *Redis) FillDocument(ctx context.Context, doc *didmodels.Document) {
	r.set(ctx, kindDocument, documentKeyPrefix+doc.DID.String(), doc, true)
}

// PutDocument overwrites the cached document.
func (r *Redis) PutDocument(ctx context.Context, doc *didmodels.Document) {
	r.set(ctx, kindDocument, documentKeyPrefix+doc.DID.String(), doc, false)
}

// LookupStatus returns a cached credential status.
func (r *Redis) LookupStatus(ctx context.Context, credentialID id.CredentialID) (credmodels.Status, bool) {
	var status credmodels.Status
	if !r.get(ctx, kindStatus, statusKeyPrefix+credentialID.String(), &status) {
		return "", false
	}
	if !status.IsSettable() {
		return "", false
	}
	return status, true
}

// FillStatus stores status only if no entry exists.
func (r *Redis) FillStatus(ctx context.Context, credentialID id.CredentialID, status credmodels.Status) {
	r.set(ctx, kindStatus, statusKeyPrefix+credentialID.String(), status, true)
}

// PutStatus overwrites the cached status.
func (r *Redis) PutStatus(ctx context.Context, credentialID id.CredentialID, status credmodels.Status) {
	r.set(ctx, kindStatus, statusKeyPrefix+credentialID.String(), status, false)
}

func (r *Redis) get(ctx context.Context, kind, key string, dst any) bool {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.metrics.ObserveCacheLookup(kind, "miss")
		return false
	}
	if err != nil {
		r.metrics.ObserveCacheLookup(kind, "error")
		r.logger.WarnContext(ctx, "cache lookup failed", "kind", kind, "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.metrics.ObserveCacheLookup(kind, "error")
		r.logger.WarnContext(ctx, "cache entry undecodable", "kind", kind, "key", key, "error", err)
		return false
	}
	r.metrics.ObserveCacheLookup(kind, "hit")
	return true
}

func (r *Redis) set(ctx context.Context, kind, key string, v any, onlyIfAbsent bool) {
	raw, err := json.Marshal(v)
	if err != nil {
		r.logger.WarnContext(ctx, "cache entry unencodable", "kind", kind, "key", key, "error", err)
		return
	}
	if onlyIfAbsent {
		err = r.client.SetNX(ctx, key, raw, r.ttl).Err()
	} else {
		err = r.client.Set(ctx, key, raw, r.ttl).Err()
	}
	if err != nil {
		r.logger.WarnContext(ctx, "cache write failed", "kind", kind, "key", key, "error", err)
	}
}
