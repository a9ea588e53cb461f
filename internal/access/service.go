// Package access is the role store: which accounts hold which capability.
//
// Every role is administered by DEFAULT_ADMIN, which also administers itself.
// Other components call Require at the top of each operation body, inside the
// same ledger step, so a failed check leaves no trace.
package access

import (
	"context"
	"log/slog"

	"rwaledger/internal/events"
	"rwaledger/internal/ledger"
	"rwaledger/internal/platform/logger"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

// Store persists role membership. Add and Remove report whether membership
// actually changed.
type Store interface {
	Has(ctx context.Context, role Role, account domain.Address) (bool, error)
	Add(ctx context.Context, role Role, account domain.Address) (bool, error)
	Remove(ctx context.Context, role Role, account domain.Address) (bool, error)
	Members(ctx context.Context, role Role) ([]domain.Address, error)
}

// Service grants, revokes and checks roles.
type Service struct {
	exec   *ledger.Executor
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(exec *ledger.Executor, store Store, opts ...Option) *Service {
	s := &Service{exec: exec, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasRole reports whether account holds role. Unknown accounts hold nothing,
// and so does any account whose membership could not be read.
func (s *Service) HasRole(ctx context.Context, role Role, account domain.Address) bool {
	has, err := s.hasRole(ctx, role, account)
	if err != nil {
		logger.LogReadFailure(ctx, s.logger, "role lookup failed", err,
			"role", string(role),
			"account", account.String(),
		)
		return false
	}
	return has
}

// Require fails with CodeUnauthorized unless caller holds role. A failed
// lookup is returned as is.
func (s *Service) Require(ctx context.Context, role Role, caller domain.Address) error {
	has, err := s.hasRole(ctx, role, caller)
	if err != nil {
		return err
	}
	if !has {
		return dErrors.Newf(dErrors.CodeUnauthorized, "account %s is missing role %s", caller, role)
	}
	return nil
}

func (s *Service) hasRole(ctx context.Context, role Role, account domain.Address) (bool, error) {
	var has bool
	err := s.exec.View(ctx, func() error {
		var err error
		has, err = s.store.Has(ctx, role, account)
		return err
	})
	if err != nil {
		return false, dErrors.Ensure(err, dErrors.CodeInternal, "failed to read role membership")
	}
	return has, nil
}

// RoleAdmin returns the role allowed to grant and revoke role.
func (s *Service) RoleAdmin(role Role) Role {
	return AdminOf(role)
}

// Members lists the accounts holding role.
func (s *Service) Members(ctx context.Context, role Role) ([]domain.Address, error) {
	var out []domain.Address
	err := s.exec.View(ctx, func() error {
		var err error
		out, err = s.store.Members(ctx, role)
		return err
	})
	if err != nil {
		return nil, dErrors.Ensure(err, dErrors.CodeInternal, "failed to list role members")
	}
	return out, nil
}

// GrantRole gives role to account. The caller must hold the role's admin role.
// Granting a role the account already holds succeeds without an event.
func (s *Service) GrantRole(ctx context.Context, caller domain.Address, role Role, account domain.Address) error {
	if !role.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", role)
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "cannot grant a role to the zero address")
	}
	return s.exec.RunInTx(ctx, "grant_role", func(ctx context.Context, tx *ledger.Tx) error {
		if err := s.Require(ctx, AdminOf(role), caller); err != nil {
			return err
		}
		return s.grant(ctx, tx, caller, role, account)
	})
}

// RevokeRole removes role from account. The caller must hold the role's admin
// role. Revoking a role the account does not hold succeeds without an event.
func (s *Service) RevokeRole(ctx context.Context, caller domain.Address, role Role, account domain.Address) error {
	if !role.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", role)
	}
	return s.exec.RunInTx(ctx, "revoke_role", func(ctx context.Context, tx *ledger.Tx) error {
		if err := s.Require(ctx, AdminOf(role), caller); err != nil {
			return err
		}
		return s.revoke(ctx, tx, caller, role, account)
	})
}

// RenounceRole lets an account drop one of its own roles.
func (s *Service) RenounceRole(ctx context.Context, caller domain.Address, role Role, account domain.Address) error {
	if !role.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", role)
	}
	if caller != account {
		return dErrors.New(dErrors.CodeUnauthorized, "accounts can only renounce their own roles")
	}
	return s.exec.RunInTx(ctx, "renounce_role", func(ctx context.Context, tx *ledger.Tx) error {
		return s.revoke(ctx, tx, caller, role, account)
	})
}

// Bootstrap grants every role to the deployer. It runs once per ledger and
// fails with CodeConflict when a DEFAULT_ADMIN already exists.
func (s *Service) Bootstrap(ctx context.Context, deployer domain.Address) error {
	if deployer.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "deployer cannot be the zero address")
	}
	return s.exec.RunInTx(ctx, "bootstrap_roles", func(ctx context.Context, tx *ledger.Tx) error {
		admins, err := s.store.Members(ctx, RoleDefaultAdmin)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read admins")
		}
		if len(admins) > 0 {
			return dErrors.New(dErrors.CodeConflict, "roles already bootstrapped")
		}
		for _, role := range AllRoles {
			if err := s.grant(ctx, tx, deployer, role, deployer); err != nil {
				return err
			}
		}
		tx.OnCommit(func() {
			logger.LogAudit(ctx, s.logger, "roles_bootstrapped", "deployer", deployer.String())
		})
		return nil
	})
}

func (s *Service) grant(ctx context.Context, tx *ledger.Tx, caller domain.Address, role Role, account domain.Address) error {
	changed, err := s.store.Add(ctx, role, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant role")
	}
	if changed {
		tx.Emit(events.Event{
			Type:    events.TypeRoleGranted,
			Actor:   caller,
			Account: account,
			Role:    string(role),
		})
		s.auditOnCommit(ctx, tx, events.TypeRoleGranted, caller, role, account)
	}
	return nil
}

func (s *Service) revoke(ctx context.Context, tx *ledger.Tx, caller domain.Address, role Role, account domain.Address) error {
	changed, err := s.store.Remove(ctx, role, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke role")
	}
	if changed {
		tx.Emit(events.Event{
			Type:    events.TypeRoleRevoked,
			Actor:   caller,
			Account: account,
			Role:    string(role),
		})
		s.auditOnCommit(ctx, tx, events.TypeRoleRevoked, caller, role, account)
	}
	return nil
}

func (s *Service) auditOnCommit(ctx context.Context, tx *ledger.Tx, event events.Type, caller domain.Address, role Role, account domain.Address) {
	tx.OnCommit(func() {
		logger.LogAudit(ctx, s.logger, string(event),
			"role", string(role),
			"account", account.String(),
			"actor", caller.String(),
		)
	})
}
