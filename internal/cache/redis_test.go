package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	credmodels "didledger/internal/credential/models"
	didmodels "didledger/internal/did/models"
	"didledger/internal/platform/metrics"
	id "didledger/pkg/domain"
)

// unreachableClient points at a port nothing listens on.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisFailuresFallThrough(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	c := NewRedis(unreachableClient(t), time.Minute, WithMetrics(m))

	doc, ok := c.LookupDocument(ctx, id.DID("did:ethr:0x123"))
	assert.False(t, ok)
	assert.Nil(t, doc)

	status, ok := c.LookupStatus(ctx, id.CredentialID("cred-1"))
	assert.False(t, ok)
	assert.Empty(t, status)

	assert.NotPanics(t, func() {
		c.PutDocument(ctx, &didmodels.Document{DID: "did:ethr:0x123"})
		c.FillStatus(ctx, "cred-1", credmodels.StatusActive)
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(kindDocument, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(kindStatus, "error")))
}

func TestRedisNilMetrics(t *testing.T) {
	c := NewRedis(unreachableClient(t), time.Minute)

	_, ok := c.LookupDocument(context.Background(), id.DID("did:ethr:0x123"))

	assert.False(t, ok)
}
