package ledger

import (
	"context"
	"sync"
	"time"

	"didledger/pkg/platform/tx"
	"didledger/pkg/requestcontext"
)

// Memory is an in-process ledger for the in-memory stores. The stores write
// in place, so readers share the lock writers hold exclusively: a read never
// observes a transaction that has not committed. The journal undoes every
// store write when fn fails or panics.
type Memory struct {
	mu   sync.RWMutex
	last time.Time
	opts options
}

func NewMemory(opts ...Option) *Memory {
	return &Memory{opts: buildOptions(opts)}
}

func (l *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := tx.JournalFrom(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return aborted(err)
	}
	ctx, cancel := withDeadline(ctx, l.opts.timeout)
	defer cancel()

	start := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		l.opts.metrics.ObserveLedgerTx(start, false)
		return aborted(err)
	}

	now := monotonic(l.opts.clock(), l.last)
	journal := &tx.Journal{}
	txCtx := tx.WithJournal(requestcontext.WithTime(ctx, now), journal)

	defer func() {
		if r := recover(); r != nil {
			journal.Rollback()
			l.opts.metrics.ObserveLedgerTx(start, false)
			panic(r)
		}
	}()
	if err := fn(txCtx); err != nil {
		journal.Rollback()
		l.opts.metrics.ObserveLedgerTx(start, false)
		return err
	}
	l.last = now
	// Hooks run under the writer lock so observers see commits in order.
	journal.Commit(context.WithoutCancel(requestcontext.WithTime(ctx, now)))
	l.opts.metrics.ObserveLedgerTx(start, true)
	return nil
}

func (l *Memory) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := tx.JournalFrom(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return aborted(err)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(ctx)
}
