// Package pause is the ledger's emergency stop.
//
// While paused every ownership change fails; registration, compliance and
// status updates, verification and approvals keep working.
package pause

import (
	"context"
	"log/slog"
	"sync"

	"rwaledger/internal/access"
	"rwaledger/internal/events"
	"rwaledger/internal/ledger"
	"rwaledger/internal/platform/logger"
	"rwaledger/internal/platform/metrics"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

// RoleChecker authorizes callers.
type RoleChecker interface {
	Require(ctx context.Context, role access.Role, caller domain.Address) error
}

type Breaker struct {
	exec  *ledger.Executor
	roles RoleChecker

	mu     sync.RWMutex
	paused bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Breaker)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Breaker) {
		b.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Breaker) {
		b.metrics = m
	}
}

func New(exec *ledger.Executor, roles RoleChecker, opts ...Option) *Breaker {
	b := &Breaker{exec: exec, roles: roles}
	for _, opt := range opts {
		opt(b)
	}
	b.metrics.SetPaused(false)
	return b
}

// Paused reports the breaker state as seen by ctx. When the state cannot be
// read the ledger is reported paused.
func (b *Breaker) Paused(ctx context.Context) bool {
	paused, err := b.state(ctx)
	if err != nil {
		logger.LogReadFailure(ctx, b.logger, "breaker state read failed", err)
		return true
	}
	return paused
}

func (b *Breaker) state(ctx context.Context) (bool, error) {
	var paused bool
	err := b.exec.View(ctx, func() error {
		b.mu.RLock()
		defer b.mu.RUnlock()
		paused = b.paused
		return nil
	})
	return paused, err
}

// Pause stops all ownership changes. Admin only.
func (b *Breaker) Pause(ctx context.Context, caller domain.Address) error {
	return b.toggle(ctx, caller, true)
}

// Unpause resumes ownership changes. Admin only.
func (b *Breaker) Unpause(ctx context.Context, caller domain.Address) error {
	return b.toggle(ctx, caller, false)
}

func (b *Breaker) toggle(ctx context.Context, caller domain.Address, pause bool) error {
	op, eventType := "unpause", events.TypeUnpaused
	if pause {
		op, eventType = "pause", events.TypePaused
	}
	return b.exec.RunInTx(ctx, op, func(ctx context.Context, tx *ledger.Tx) error {
		if err := b.roles.Require(ctx, access.RoleAdmin, caller); err != nil {
			return err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.paused == pause {
			if pause {
				return dErrors.New(dErrors.CodeAlreadyPaused, "ledger is already paused")
			}
			return dErrors.New(dErrors.CodeAlreadyUnpaused, "ledger is not paused")
		}
		b.paused = pause
		ledger.OnRollback(ctx, func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.paused = !pause
		})
		tx.Emit(events.Event{Type: eventType, Actor: caller})
		tx.OnCommit(func() {
			b.metrics.SetPaused(pause)
			logger.LogAudit(ctx, b.logger, string(eventType), "actor", caller.String())
		})
		return nil
	})
}

// RequireRunning fails with CodePaused while the breaker is engaged. A failed
// read of the state is returned as is.
func (b *Breaker) RequireRunning(ctx context.Context) error {
	paused, err := b.state(ctx)
	if err != nil {
		return err
	}
	if paused {
		return dErrors.New(dErrors.CodePaused, "ledger is paused")
	}
	return nil
}
