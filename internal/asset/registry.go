// Package asset is the registry of tokenized assets and their provenance.
//
// Registration is the only creation path. Compliance and lifecycle status are
// changed by their respective roles; ownership is changed only by the transfer
// engine through the same Store.
package asset

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strconv"

	"rwaledger/internal/access"
	"rwaledger/internal/events"
	"rwaledger/internal/ledger"
	"rwaledger/internal/platform/logger"
	"rwaledger/internal/platform/metrics"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
	"rwaledger/pkg/platform/sentinel"
)

// Store persists assets and provenance.
type Store interface {
	NextID(ctx context.Context) (domain.AssetID, error)
	Create(ctx context.Context, a *Asset) error
	FindByID(ctx context.Context, id domain.AssetID) (*Asset, error)
	Update(ctx context.Context, a *Asset) error
	AppendTransfer(ctx context.Context, r TransferRecord) error
	History(ctx context.Context, id domain.AssetID) ([]TransferRecord, error)
	ListByOwner(ctx context.Context, owner domain.Address) ([]domain.AssetID, error)
	Count(ctx context.Context) (uint64, error)
}

// RoleChecker authorizes callers.
type RoleChecker interface {
	Require(ctx context.Context, role access.Role, caller domain.Address) error
}

// VerificationChecker answers whether an account may own assets.
type VerificationChecker interface {
	IsVerified(ctx context.Context, account domain.Address) bool
}

type Registry struct {
	exec     *ledger.Executor
	roles    RoleChecker
	verifier VerificationChecker
	store    Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func NewRegistry(exec *ledger.Executor, roles RoleChecker, verifier VerificationChecker, store Store, opts ...Option) *Registry {
	r := &Registry{exec: exec, roles: roles, verifier: verifier, store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterAsset creates an asset owned by owner. Minter only; the owner must be
// verified. New assets start Pending and non-compliant.
func (r *Registry) RegisterAsset(ctx context.Context, caller, owner domain.Address, metadataURI string, assetType domain.AssetType, valuation *big.Int) (domain.AssetID, error) {
	if !assetType.IsValid() {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "invalid asset type %q", assetType)
	}
	if err := validateValuation(valuation); err != nil {
		return 0, err
	}

	var id domain.AssetID
	err := r.exec.RunInTx(ctx, "register_asset", func(ctx context.Context, tx *ledger.Tx) error {
		if err := r.roles.Require(ctx, access.RoleMinter, caller); err != nil {
			return err
		}
		if owner.IsZero() || !r.verifier.IsVerified(ctx, owner) {
			return dErrors.Newf(dErrors.CodeRecipientNotVerified, "owner %s is not verified", owner)
		}
		next, err := r.store.NextID(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate asset id")
		}
		a := &Asset{
			ID:           next,
			Owner:        owner,
			Type:         assetType,
			MetadataURI:  metadataURI,
			Compliant:    false,
			Status:       domain.AssetStatusPending,
			Valuation:    new(big.Int).Set(valuation),
			RegisteredAt: tx.Now(),
		}
		if err := r.store.Create(ctx, a); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store asset")
		}
		tx.Emit(events.Event{
			Type:    events.TypeAssetRegistered,
			Actor:   caller,
			AssetID: events.ForAsset(next),
			To:      owner,
			New:     string(assetType),
			Price:   valuation.String(),
		})
		tx.OnCommit(func() {
			r.metrics.IncAssetsRegistered()
			logger.LogAudit(ctx, r.logger, string(events.TypeAssetRegistered),
				"asset_id", next.String(),
				"owner", owner.String(),
				"asset_type", string(assetType),
				"actor", caller.String(),
			)
		})
		id = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetCompliance sets the compliance flag. Compliance only; idempotent.
func (r *Registry) SetCompliance(ctx context.Context, caller domain.Address, id domain.AssetID, compliant bool) error {
	return r.exec.RunInTx(ctx, "set_compliance", func(ctx context.Context, tx *ledger.Tx) error {
		if err := r.roles.Require(ctx, access.RoleCompliance, caller); err != nil {
			return err
		}
		a, err := r.load(ctx, id)
		if err != nil {
			return err
		}
		old := a.Compliant
		a.Compliant = compliant
		if err := r.save(ctx, a); err != nil {
			return err
		}
		tx.Emit(events.Event{
			Type:    events.TypeComplianceChanged,
			Actor:   caller,
			AssetID: events.ForAsset(id),
			Old:     strconv.FormatBool(old),
			New:     strconv.FormatBool(compliant),
		})
		tx.OnCommit(func() {
			logger.LogAudit(ctx, r.logger, string(events.TypeComplianceChanged),
				"asset_id", id.String(),
				"compliant", compliant,
				"actor", caller.String(),
			)
		})
		return nil
	})
}

// SetStatus moves an asset to status. Admin only. Any status may follow any
// other; there is no transition graph.
func (r *Registry) SetStatus(ctx context.Context, caller domain.Address, id domain.AssetID, status domain.AssetStatus) error {
	if !status.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid asset status %q", status)
	}
	return r.exec.RunInTx(ctx, "set_status", func(ctx context.Context, tx *ledger.Tx) error {
		if err := r.roles.Require(ctx, access.RoleAdmin, caller); err != nil {
			return err
		}
		a, err := r.load(ctx, id)
		if err != nil {
			return err
		}
		old := a.Status
		a.Status = status
		if err := r.save(ctx, a); err != nil {
			return err
		}
		tx.Emit(events.Event{
			Type:    events.TypeStatusChanged,
			Actor:   caller,
			AssetID: events.ForAsset(id),
			Old:     string(old),
			New:     string(status),
		})
		tx.OnCommit(func() {
			logger.LogAudit(ctx, r.logger, string(events.TypeStatusChanged),
				"asset_id", id.String(),
				"old_status", string(old),
				"new_status", string(status),
				"actor", caller.String(),
			)
		})
		return nil
	})
}

// UpdateValuation replaces the valuation. Admin only.
func (r *Registry) UpdateValuation(ctx context.Context, caller domain.Address, id domain.AssetID, valuation *big.Int) error {
	if err := validateValuation(valuation); err != nil {
		return err
	}
	return r.exec.RunInTx(ctx, "update_valuation", func(ctx context.Context, tx *ledger.Tx) error {
		if err := r.roles.Require(ctx, access.RoleAdmin, caller); err != nil {
			return err
		}
		a, err := r.load(ctx, id)
		if err != nil {
			return err
		}
		old := a.Valuation.String()
		a.Valuation = new(big.Int).Set(valuation)
		if err := r.save(ctx, a); err != nil {
			return err
		}
		tx.Emit(events.Event{
			Type:    events.TypeValuationChanged,
			Actor:   caller,
			AssetID: events.ForAsset(id),
			Old:     old,
			New:     valuation.String(),
		})
		tx.OnCommit(func() {
			logger.LogAudit(ctx, r.logger, string(events.TypeValuationChanged),
				"asset_id", id.String(),
				"valuation", valuation.String(),
				"actor", caller.String(),
			)
		})
		return nil
	})
}

// UpdateMetadata replaces the metadata URI. Admin only.
func (r *Registry) UpdateMetadata(ctx context.Context, caller domain.Address, id domain.AssetID, metadataURI string) error {
	return r.exec.RunInTx(ctx, "update_metadata", func(ctx context.Context, tx *ledger.Tx) error {
		if err := r.roles.Require(ctx, access.RoleAdmin, caller); err != nil {
			return err
		}
		a, err := r.load(ctx, id)
		if err != nil {
			return err
		}
		old := a.MetadataURI
		a.MetadataURI = metadataURI
		if err := r.save(ctx, a); err != nil {
			return err
		}
		tx.Emit(events.Event{
			Type:    events.TypeMetadataChanged,
			Actor:   caller,
			AssetID: events.ForAsset(id),
			Old:     old,
			New:     metadataURI,
		})
		tx.OnCommit(func() {
			logger.LogAudit(ctx, r.logger, string(events.TypeMetadataChanged),
				"asset_id", id.String(),
				"actor", caller.String(),
			)
		})
		return nil
	})
}

// GetAssetInfo returns a copy of the asset.
func (r *Registry) GetAssetInfo(ctx context.Context, id domain.AssetID) (*Asset, error) {
	var a *Asset
	err := r.exec.View(ctx, func() error {
		var err error
		a, err = r.load(ctx, id)
		return err
	})
	return a, err
}

// GetAssetsOwnedBy lists the ids currently owned by account, ascending.
func (r *Registry) GetAssetsOwnedBy(ctx context.Context, account domain.Address) ([]domain.AssetID, error) {
	var ids []domain.AssetID
	err := r.exec.View(ctx, func() error {
		var err error
		ids, err = r.store.ListByOwner(ctx, account)
		return err
	})
	if err != nil {
		return nil, dErrors.Ensure(err, dErrors.CodeInternal, "failed to list owned assets")
	}
	return ids, nil
}

// GetTransferHistory returns the provenance of an asset, oldest first.
func (r *Registry) GetTransferHistory(ctx context.Context, id domain.AssetID) ([]TransferRecord, error) {
	var history []TransferRecord
	err := r.exec.View(ctx, func() error {
		var err error
		history, err = r.store.History(ctx, id)
		return err
	})
	if err != nil {
		return nil, translate(err, id)
	}
	return history, nil
}

// TotalAssets returns how many assets were ever registered.
func (r *Registry) TotalAssets(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.exec.View(ctx, func() error {
		var err error
		n, err = r.store.Count(ctx)
		return err
	})
	if err != nil {
		return 0, dErrors.Ensure(err, dErrors.CodeInternal, "failed to count assets")
	}
	return n, nil
}

func (r *Registry) load(ctx context.Context, id domain.AssetID) (*Asset, error) {
	a, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, id)
	}
	return a, nil
}

func (r *Registry) save(ctx context.Context, a *Asset) error {
	if err := r.store.Update(ctx, a); err != nil {
		return translate(err, a.ID)
	}
	return nil
}

func translate(err error, id domain.AssetID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeAssetNotFound, "asset %s not found", id)
	}
	return dErrors.Ensure(err, dErrors.CodeInternal, "asset store failure")
}

func validateValuation(v *big.Int) error {
	if v == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "valuation is required")
	}
	if v.Sign() < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "valuation cannot be negative")
	}
	return nil
}
