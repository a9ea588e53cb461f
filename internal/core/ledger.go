// Package core assembles the ledger components over one executor and one
// event log.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"rwaledger/internal/access"
	"rwaledger/internal/asset"
	"rwaledger/internal/events"
	"rwaledger/internal/ledger"
	"rwaledger/internal/pause"
	"rwaledger/internal/platform/metrics"
	"rwaledger/internal/transfer"
	"rwaledger/internal/verification"
	"rwaledger/pkg/domain"
)

// Ledger is one asset registry ledger. All components share the same
// executor, so every operation is one serialized atomic step.
type Ledger struct {
	Executor     *ledger.Executor
	Events       *events.Log
	Access       *access.Service
	Verification *verification.Service
	Assets       *asset.Registry
	Transfers    *transfer.Engine
	Breaker      *pause.Breaker
}

// Options configures New. Zero values are valid.
type Options struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Tracer      trace.Tracer
	TxTimeout   time.Duration
	Clock       func() time.Time
	ReceiptHook transfer.ReceiptHook
}

// New builds an empty ledger with in-memory state.
func New(opts Options) *Ledger {
	log := events.NewLog()
	exec := ledger.NewExecutor(log,
		ledger.WithTimeout(opts.TxTimeout),
		ledger.WithClock(opts.Clock),
		ledger.WithTracer(opts.Tracer),
		ledger.WithLogger(opts.Logger),
		ledger.WithMetrics(opts.Metrics),
	)

	roles := access.New(exec, access.NewInMemoryStore(), access.WithLogger(opts.Logger))
	verifier := verification.New(exec, roles, verification.NewInMemoryStore(), verification.WithLogger(opts.Logger))
	store := asset.NewInMemoryStore()
	registry := asset.NewRegistry(exec, roles, verifier, store,
		asset.WithLogger(opts.Logger),
		asset.WithMetrics(opts.Metrics),
	)
	breaker := pause.New(exec, roles,
		pause.WithLogger(opts.Logger),
		pause.WithMetrics(opts.Metrics),
	)
	transferOpts := []transfer.Option{
		transfer.WithLogger(opts.Logger),
		transfer.WithMetrics(opts.Metrics),
	}
	if opts.ReceiptHook != nil {
		transferOpts = append(transferOpts, transfer.WithReceiptHook(opts.ReceiptHook))
	}
	engine := transfer.NewEngine(exec, store, verifier, breaker, transferOpts...)

	return &Ledger{
		Executor:     exec,
		Events:       log,
		Access:       roles,
		Verification: verifier,
		Assets:       registry,
		Transfers:    engine,
		Breaker:      breaker,
	}
}

// Deploy grants every role to deployer and marks the genesis accounts
// verified, as one step. The deployer is verified too so it can hold assets it
// mints.
func (l *Ledger) Deploy(ctx context.Context, deployer domain.Address, genesis []domain.Address) error {
	return l.Executor.RunInTx(ctx, "deploy", func(ctx context.Context, _ *ledger.Tx) error {
		if err := l.Access.Bootstrap(ctx, deployer); err != nil {
			return fmt.Errorf("bootstrap roles: %w", err)
		}
		accounts := append([]domain.Address{deployer}, genesis...)
		for start := 0; start < len(accounts); start += verification.MaxBatchSize {
			end := min(start+verification.MaxBatchSize, len(accounts))
			if err := l.Verification.BatchSetVerification(ctx, deployer, accounts[start:end], true); err != nil {
				return fmt.Errorf("verify genesis accounts %d..%d: %w", start, end-1, err)
			}
		}
		return nil
	})
}
