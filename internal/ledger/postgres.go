package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"didledger/pkg/platform/tx"
	"didledger/pkg/requestcontext"
)

// advisoryLockKey is the pg_advisory_xact_lock key shared by every registry
// process writing to the same database.
const advisoryLockKey int64 = 0x6469646c6564 // "didled"

// Postgres serializes transactions across processes with a transaction-level
// advisory lock, and within one process with a mutex so after-commit hooks
// observe commits in order.
type Postgres struct {
	db   *sql.DB
	mu   sync.Mutex
	last time.Time
	opts options
}

func NewPostgres(db *sql.DB, opts ...Option) *Postgres {
	return &Postgres{db: db, opts: buildOptions(opts)}
}

func (l *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := tx.From(ctx); ok {
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

	committed := false
	defer func() { l.opts.metrics.ObserveLedgerTx(start, committed) }()

	sqlTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		if ctx.Err() != nil {
			return aborted(ctx.Err())
		}
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if _, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey); err != nil {
		return fmt.Errorf("acquire ledger lock: %w", err)
	}
	var dbNow time.Time
	if err := sqlTx.QueryRowContext(ctx, `SELECT clock_timestamp()`).Scan(&dbNow); err != nil {
		return fmt.Errorf("read ledger clock: %w", err)
	}
	now := monotonic(dbNow, l.last)

	journal := &tx.Journal{}
	txCtx := tx.WithJournal(tx.WithTx(requestcontext.WithTime(ctx, now), sqlTx), journal)
	defer func() {
		if r := recover(); r != nil {
			journal.Rollback()
			panic(r)
		}
	}()
	if err := fn(txCtx); err != nil {
		journal.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		journal.Rollback()
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	committed = true
	l.last = now
	journal.Commit(context.WithoutCancel(requestcontext.WithTime(ctx, now)))
	return nil
}

// View runs fn on the pool. Outside a transaction Postgres reads see only
// committed rows; inside one the stores pick up the active *sql.Tx.
func (l *Postgres) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return aborted(err)
	}
	return fn(ctx)
}
