package ledger

import (
	"context"
	"time"

	"rwaledger/internal/events"
)

// Tx is one atomic ledger step. Writes register an undo function; events are
// staged and only reach the event log when the step commits.
type Tx struct {
	owner   *Executor
	op      string
	now     time.Time
	open    bool
	undo    []func()
	commit  []func()
	pending []events.Event
}

// Op names the operation that opened the transaction.
func (tx *Tx) Op() string { return tx.op }

// Now is the timestamp of the step. Every record and event written in the
// step shares it.
func (tx *Tx) Now() time.Time { return tx.now }

// OnRollback registers fn to run if the step fails. Undo functions run in
// reverse registration order.
func (tx *Tx) OnRollback(fn func()) {
	tx.undo = append(tx.undo, fn)
}

// OnCommit registers fn to run once the outermost step has committed. Commit
// functions run in registration order; those registered by a nested call that
// failed are dropped with it.
func (tx *Tx) OnCommit(fn func()) {
	tx.commit = append(tx.commit, fn)
}

// Emit stages an event for commit.
func (tx *Tx) Emit(e events.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = tx.now
	}
	tx.pending = append(tx.pending, e)
}

// Pending returns the events staged so far.
func (tx *Tx) Pending() []events.Event {
	return append([]events.Event(nil), tx.pending...)
}

func (tx *Tx) rollbackTo(mark int) {
	for i := len(tx.undo) - 1; i >= mark; i-- {
		tx.undo[i]()
	}
	tx.undo = tx.undo[:mark]
}

// savepoint runs a nested call inside tx. A failing nested call is undone on
// its own without aborting the enclosing step.
func (tx *Tx) savepoint(ctx context.Context, fn TxFunc) error {
	undoMark, commitMark, eventMark := len(tx.undo), len(tx.commit), len(tx.pending)
	if err := fn(ctx, tx); err != nil {
		tx.rollbackTo(undoMark)
		tx.commit = tx.commit[:commitMark]
		tx.pending = tx.pending[:eventMark]
		return err
	}
	return nil
}

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores tx in ctx so nested calls and stores can find it.
func WithTx(ctx context.Context, tx *Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts the in-flight transaction from ctx if present.
func From(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey).(*Tx)
	return tx, ok
}

// OnRollback registers fn with the transaction in ctx. Writes outside a
// transaction (store tests, bootstrap tooling) have nothing to undo.
func OnRollback(ctx context.Context, fn func()) {
	if tx, ok := From(ctx); ok && tx.open {
		tx.OnRollback(fn)
	}
}
