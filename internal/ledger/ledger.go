// Package ledger is the serialization boundary of the registry. Every
// mutating operation runs inside RunInTx: writers are admitted one at a time,
// each transaction gets a single monotonic timestamp, and a failing
// transaction leaves no trace in any store.
//
// Stores join the active transaction through the context (pkg/platform/tx).
// Calling RunInTx with a context that already carries a transaction joins it
// instead of opening a new one, so a registry operation and the audit append
// it triggers commit or roll back together.
package ledger

import (
	"context"
	"time"

	"didledger/internal/platform/metrics"
	dErrors "didledger/pkg/domain-errors"
	"didledger/pkg/platform/tx"
	"didledger/pkg/requestcontext"
)

// defaultTxTimeout bounds lock wait plus execution of one transaction.
const defaultTxTimeout = 5 * time.Second

// Ledger runs fn as one all-or-nothing, totally ordered transaction.
// View runs a read against committed state only; called inside a transaction
// it joins it and sees that transaction's own writes.
type Ledger interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	View(ctx context.Context, fn func(ctx context.Context) error) error
}

// Option configures a ledger.
type Option func(*options)

type options struct {
	timeout time.Duration
	clock   func() time.Time
	metrics *metrics.Metrics
}

// WithTimeout overrides the per-transaction timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithClock overrides the clock used for transaction timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMetrics records transaction latency and outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{timeout: defaultTxTimeout, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Timestamp returns the ledger-assigned time of the transaction in ctx.
func Timestamp(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC()
}

func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func aborted(err error) error {
	return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
}

// monotonic returns t, or last plus one microsecond when the clock has not
// advanced past last. Microsecond resolution matches Postgres timestamptz.
func monotonic(t, last time.Time) time.Time {
	t = t.UTC().Truncate(time.Microsecond)
	if !t.After(last) {
		return last.Add(time.Microsecond)
	}
	return t
}

// AfterCommit registers hook to run once the transaction in ctx commits.
// Outside a transaction it runs immediately.
func AfterCommit(ctx context.Context, hook func(ctx context.Context)) {
	tx.AfterCommit(ctx, hook)
}
