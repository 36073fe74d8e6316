// Package tx carries the active ledger transaction through a context so that
// stores can join it without their callers passing handles around.
//
// Two kinds of transaction exist:
//   - a SQL transaction, used by the Postgres stores
//   - an in-memory Journal, used by the in-memory stores to record undo steps
package tx

import (
	"context"
	"database/sql"
	"sync"
)

type (
	sqlTxKey   struct{}
	journalKey struct{}
)

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, sqlTxKey{}, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx)
	return tx, ok
}

// Journal records undo steps and after-commit hooks for one transaction.
// Undo steps run in reverse order on rollback; hooks run in order on commit.
type Journal struct {
	mu    sync.Mutex
	undo  []func()
	hooks []func(context.Context)
}

// WithJournal attaches a journal to ctx.
func WithJournal(ctx context.Context, j *Journal) context.Context {
	if j == nil {
		return ctx
	}
	return context.WithValue(ctx, journalKey{}, j)
}

// JournalFrom extracts the journal from ctx if present.
func JournalFrom(ctx context.Context) (*Journal, bool) {
	j, ok := ctx.Value(journalKey{}).(*Journal)
	return j, ok
}

// OnRollback registers an undo step. Without a journal in ctx the write is
// outside any transaction and the step is dropped.
func OnRollback(ctx context.Context, undo func()) {
	if j, ok := JournalFrom(ctx); ok {
		j.mu.Lock()
		j.undo = append(j.undo, undo)
		j.mu.Unlock()
	}
}

// AfterCommit registers a hook that runs once the transaction commits. Outside
// a transaction the hook runs immediately.
func AfterCommit(ctx context.Context, hook func(context.Context)) {
	j, ok := JournalFrom(ctx)
	if !ok {
		hook(ctx)
		return
	}
	j.mu.Lock()
	j.hooks = append(j.hooks, hook)
	j.mu.Unlock()
}

// Rollback runs undo steps newest first and discards hooks.
func (j *Journal) Rollback() {
	j.mu.Lock()
	undo := j.undo
	j.undo, j.hooks = nil, nil
	j.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

// Commit discards undo steps and runs hooks in registration order.
func (j *Journal) Commit(ctx context.Context) {
	j.mu.Lock()
	hooks := j.hooks
	j.undo, j.hooks = nil, nil
	j.mu.Unlock()
	for _, hook := range hooks {
		hook(ctx)
	}
}
