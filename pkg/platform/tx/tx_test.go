package tx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJournal(t *testing.T) {
	t.Run("rollback undoes newest first and drops hooks", func(t *testing.T) {
		j := &Journal{}
		ctx := WithJournal(context.Background(), j)

		var order []int
		hookRan := false
		OnRollback(ctx, func() { order = append(order, 1) })
		OnRollback(ctx, func() { order = append(order, 2) })
		AfterCommit(ctx, func(context.Context) { hookRan = true })

		j.Rollback()
		assert.Equal(t, []int{2, 1}, order)
		assert.False(t, hookRan)
	})

	t.Run("commit runs hooks in order and drops undo", func(t *testing.T) {
		j := &Journal{}
		ctx := WithJournal(context.Background(), j)

		var hooks []string
		undone := false
		OnRollback(ctx, func() { undone = true })
		AfterCommit(ctx, func(context.Context) { hooks = append(hooks, "a") })
		AfterCommit(ctx, func(context.Context) { hooks = append(hooks, "b") })

		j.Commit(context.Background())
		assert.Equal(t, []string{"a", "b"}, hooks)
		assert.False(t, undone)
	})

	t.Run("hooks outside a transaction run immediately", func(t *testing.T) {
		ran := false
		AfterCommit(context.Background(), func(context.Context) { ran = true })
		assert.True(t, ran)
	})
}

func TestSQLTxContext(t *testing.T) {
	ctx := WithTx(context.Background(), nil)
	_, ok := From(ctx)
	assert.False(t, ok)
}
