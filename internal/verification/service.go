// Package verification is the KYC registry: which accounts may receive assets.
//
// Only holders of COMPLIANCE may change the flag. BatchSetVerification is the
// single bulk entry point; its size is validated before any write so a batch
// either applies completely or not at all.
package verification

import (
	"context"
	"log/slog"
	"strconv"

	"rwaledger/internal/access"
	"rwaledger/internal/events"
	"rwaledger/internal/ledger"
	"rwaledger/internal/platform/logger"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

// MaxBatchSize bounds BatchSetVerification.
const MaxBatchSize = 100

// Store persists verification flags.
type Store interface {
	IsVerified(ctx context.Context, account domain.Address) (bool, error)
	Set(ctx context.Context, account domain.Address, status bool) (bool, error)
	CountVerified(ctx context.Context) (int, error)
}

// RoleChecker authorizes callers.
type RoleChecker interface {
	Require(ctx context.Context, role access.Role, caller domain.Address) error
}

type Service struct {
	exec   *ledger.Executor
	roles  RoleChecker
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(exec *ledger.Executor, roles RoleChecker, store Store, opts ...Option) *Service {
	s := &Service{exec: exec, roles: roles, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsVerified reports whether account may own assets. An account whose flag
// cannot be read is treated as unverified.
func (s *Service) IsVerified(ctx context.Context, account domain.Address) bool {
	var verified bool
	err := s.exec.View(ctx, func() error {
		var err error
		verified, err = s.store.IsVerified(ctx, account)
		return err
	})
	if err != nil {
		logger.LogReadFailure(ctx, s.logger, "verification lookup failed", err, "account", account.String())
		return false
	}
	return verified
}

// CountVerified returns the number of verified accounts.
func (s *Service) CountVerified(ctx context.Context) (int, error) {
	var n int
	err := s.exec.View(ctx, func() error {
		var err error
		n, err = s.store.CountVerified(ctx)
		return err
	})
	if err != nil {
		return 0, dErrors.Ensure(err, dErrors.CodeInternal, "failed to count verified accounts")
	}
	return n, nil
}

// SetVerification sets the verified flag of account. Compliance only.
// Setting the current value is allowed and still emits an event.
func (s *Service) SetVerification(ctx context.Context, caller, account domain.Address, status bool) error {
	if account.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "cannot verify the zero address")
	}
	return s.exec.RunInTx(ctx, "set_verification", func(ctx context.Context, tx *ledger.Tx) error {
		if err := s.roles.Require(ctx, access.RoleCompliance, caller); err != nil {
			return err
		}
		if err := s.set(ctx, tx, caller, account, status); err != nil {
			return err
		}
		tx.OnCommit(func() {
			logger.LogAudit(ctx, s.logger, string(events.TypeVerificationChanged),
				"account", account.String(),
				"verified", status,
				"actor", caller.String(),
			)
		})
		return nil
	})
}

// BatchSetVerification applies SetVerification to every account, then emits
// one summary event. Accepts 1 to MaxBatchSize accounts; duplicates are
// harmless.
func (s *Service) BatchSetVerification(ctx context.Context, caller domain.Address, accounts []domain.Address, status bool) error {
	return s.exec.RunInTx(ctx, "batch_set_verification", func(ctx context.Context, tx *ledger.Tx) error {
		if err := s.roles.Require(ctx, access.RoleCompliance, caller); err != nil {
			return err
		}
		if err := validateBatch(accounts); err != nil {
			return err
		}
		for _, account := range accounts {
			if err := s.set(ctx, tx, caller, account, status); err != nil {
				return err
			}
		}
		tx.Emit(events.Event{
			Type:  events.TypeBatchVerificationChanged,
			Actor: caller,
			New:   strconv.FormatBool(status),
			Count: len(accounts),
		})
		tx.OnCommit(func() {
			logger.LogAudit(ctx, s.logger, string(events.TypeBatchVerificationChanged),
				"count", len(accounts),
				"verified", status,
				"actor", caller.String(),
			)
		})
		return nil
	})
}

func validateBatch(accounts []domain.Address) error {
	switch {
	case len(accounts) == 0:
		return dErrors.New(dErrors.CodeEmptyBatch, "batch must contain at least one account")
	case len(accounts) > MaxBatchSize:
		return dErrors.Newf(dErrors.CodeBatchTooLarge, "batch of %d exceeds limit of %d", len(accounts), MaxBatchSize)
	}
	for _, a := range accounts {
		if a.IsZero() {
			return dErrors.New(dErrors.CodeInvalidInput, "cannot verify the zero address")
		}
	}
	return nil
}

func (s *Service) set(ctx context.Context, tx *ledger.Tx, caller, account domain.Address, status bool) error {
	old, err := s.store.Set(ctx, account, status)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification")
	}
	tx.Emit(events.Event{
		Type:    events.TypeVerificationChanged,
		Actor:   caller,
		Account: account,
		Old:     strconv.FormatBool(old),
		New:     strconv.FormatBool(status),
	})
	return nil
}
