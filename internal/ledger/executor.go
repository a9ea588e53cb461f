// Package ledger serializes ledger mutations into atomic steps.
//
// Every mutating operation runs through Executor.RunInTx: a single writer at a
// time, every write journaled, and either all of it commits (events released to
// the event log in order) or none of it is observable. Calls made from inside a
// step with the step's context join it instead of taking the lock again. Reads
// outside a step wait for the lock under the same bound as writers and fail
// with CodeTimeout rather than block.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"rwaledger/internal/events"
	"rwaledger/internal/platform/metrics"
	dErrors "rwaledger/pkg/domain-errors"
)

// DefaultTxTimeout bounds how long a step or a read may wait for the ledger
// lock.
const DefaultTxTimeout = 5 * time.Second

// stepWeight is the whole lock. A step takes all of it, a read takes one unit.
const stepWeight = 1 << 30

// TxFunc is the body of an atomic step.
type TxFunc func(ctx context.Context, tx *Tx) error

// Executor owns the single-writer lock and the event log.
type Executor struct {
	// lock admits one step or many reads. Waiters are served in arrival order,
	// so a queued step is not starved by a stream of reads.
	lock *semaphore.Weighted

	log     *events.Log
	timeout time.Duration
	clock   func() time.Time
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Executor)

func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithClock overrides the step timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(e *Executor) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor returns an executor committing to log.
func NewExecutor(log *events.Log, opts ...Option) *Executor {
	e := &Executor{
		lock:    semaphore.NewWeighted(stepWeight),
		log:     log,
		timeout: DefaultTxTimeout,
		clock:   time.Now,
		tracer:  otel.Tracer("rwaledger/internal/ledger"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Log returns the event log steps commit to.
func (e *Executor) Log() *events.Log { return e.log }

// Now returns the executor clock's current time.
func (e *Executor) Now() time.Time { return e.clock() }

// RunInTx runs fn as one atomic step named op.
//
// If ctx already carries an open step of this executor, fn joins it under a
// savepoint. Otherwise RunInTx waits for the writer lock, bounded by ctx and
// the executor timeout, and fails with CodeTimeout when it cannot get it.
func (e *Executor) RunInTx(ctx context.Context, op string, fn TxFunc) (err error) {
	if tx, ok := From(ctx); ok && tx.owner == e && tx.open {
		return tx.savepoint(ctx, fn)
	}

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	start := time.Now()
	release, err := e.acquire(ctx, stepWeight)
	if err != nil {
		e.metrics.ObserveTx(op, string(dErrors.CodeTimeout), time.Since(start))
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: ledger busy")
	}
	defer release()

	ctx, span := e.tracer.Start(ctx, "ledger."+op)
	defer span.End()

	tx := &Tx{owner: e, op: op, now: e.clock(), open: true}
	ctx = WithTx(ctx, tx)

	defer func() {
		if p := recover(); p != nil {
			tx.open = false
			tx.rollbackTo(0)
			panic(p)
		}
	}()

	err = fn(ctx, tx)
	tx.open = false
	if err != nil {
		tx.rollbackTo(0)
		outcome := string(dErrors.CodeOf(err))
		if outcome == "" {
			outcome = string(dErrors.CodeInternal)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		e.metrics.ObserveTx(op, outcome, time.Since(start))
		if e.logger != nil {
			e.logger.DebugContext(ctx, "ledger step rolled back",
				"op", op,
				"outcome", outcome,
				"error", err,
			)
		}
		return err
	}

	committed := e.log.Append(tx.pending...)
	span.SetAttributes(attribute.Int("ledger.events", len(committed)))
	e.metrics.AddEventsAppended(len(committed))
	e.metrics.ObserveTx(op, "ok", time.Since(start))
	for _, fn := range tx.commit {
		fn()
	}
	return nil
}

// View runs a read. Reads made with the context of an open step see that
// step's writes; all other reads see committed state only and wait for an
// in-flight step no longer than ctx and the executor timeout allow.
func (e *Executor) View(ctx context.Context, fn func() error) error {
	if tx, ok := From(ctx); ok && tx.owner == e && tx.open {
		return fn()
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "read aborted: context cancelled")
	}
	release, err := e.acquire(ctx, 1)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "read aborted: ledger busy")
	}
	defer release()
	return fn()
}

// acquire takes weight units of the lock, waiting at most until ctx is done or,
// when ctx has no deadline, for the executor timeout.
func (e *Executor) acquire(ctx context.Context, weight int64) (func(), error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if err := e.lock.Acquire(ctx, weight); err != nil {
		return nil, err
	}
	return func() { e.lock.Release(weight) }, nil
}
