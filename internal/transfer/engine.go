// Package transfer is the only path by which asset ownership changes.
//
// Every entry point funnels into one gate that checks, in order: the breaker is
// not engaged, the caller is the owner or holds a delegated capability, the
// asset is compliant, the asset is Active, and the recipient is verified. On
// success the owner change, the provenance record and the approval reset commit
// together in one ledger step. The recipient hook runs last, after the record
// is written, so anything it moves in turn is recorded after it.
package transfer

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"

	"rwaledger/internal/asset"
	"rwaledger/internal/events"
	"rwaledger/internal/ledger"
	"rwaledger/internal/platform/logger"
	"rwaledger/internal/platform/metrics"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
	"rwaledger/pkg/platform/sentinel"
)

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks ReceiptHook

// Receipt describes a completed ownership change to a ReceiptHook.
type Receipt struct {
	Operator domain.Address
	From     domain.Address
	To       domain.Address
	AssetID  domain.AssetID
	// Price is nil for plain transfers.
	Price *big.Int
}

// ReceiptHook is notified after the owner change and its record, before
// commit. Returning an error aborts the whole transfer. Calls back into the
// ledger with the given ctx join the transfer; calls with any other ctx wait
// for it and fail with CodeTimeout.
type ReceiptHook interface {
	OnAssetReceived(ctx context.Context, r Receipt) error
}

// AssetStore is the part of the asset store the engine writes to.
type AssetStore interface {
	FindByID(ctx context.Context, id domain.AssetID) (*asset.Asset, error)
	Update(ctx context.Context, a *asset.Asset) error
	AppendTransfer(ctx context.Context, r asset.TransferRecord) error
}

// VerificationChecker answers whether an account may own assets.
type VerificationChecker interface {
	IsVerified(ctx context.Context, account domain.Address) bool
}

// Breaker reports whether ownership changes are currently allowed.
type Breaker interface {
	RequireRunning(ctx context.Context) error
}

type Engine struct {
	exec     *ledger.Executor
	store    AssetStore
	verifier VerificationChecker
	breaker  Breaker
	hook     ReceiptHook

	mu        sync.RWMutex
	approvals map[domain.AssetID]domain.Address
	operators map[domain.Address]map[domain.Address]struct{}
	// pricedInProgress is raised for the whole of a TransferWithPrice step.
	pricedInProgress bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithReceiptHook installs a recipient notification hook.
func WithReceiptHook(h ReceiptHook) Option {
	return func(e *Engine) {
		e.hook = h
	}
}

func NewEngine(exec *ledger.Executor, store AssetStore, verifier VerificationChecker, breaker Breaker, opts ...Option) *Engine {
	e := &Engine{
		exec:      exec,
		store:     store,
		verifier:  verifier,
		breaker:   breaker,
		approvals: make(map[domain.AssetID]domain.Address),
		operators: make(map[domain.Address]map[domain.Address]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transfer moves asset id from its current owner to to, recording a zero price.
func (e *Engine) Transfer(ctx context.Context, caller domain.Address, id domain.AssetID, to domain.Address) error {
	return e.exec.RunInTx(ctx, "transfer", func(ctx context.Context, tx *ledger.Tx) error {
		return e.move(ctx, tx, caller, domain.ZeroAddress, to, id, nil)
	})
}

// TransferFrom is Transfer with an explicit source; from must be the current
// owner.
func (e *Engine) TransferFrom(ctx context.Context, caller, from, to domain.Address, id domain.AssetID) error {
	if from.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "from cannot be the zero address")
	}
	return e.exec.RunInTx(ctx, "transfer_from", func(ctx context.Context, tx *ledger.Tx) error {
		return e.move(ctx, tx, caller, from, to, id, nil)
	})
}

// TransferWithPrice moves the asset and records exactly one provenance entry
// carrying price. It cannot be re-entered from within its own step.
func (e *Engine) TransferWithPrice(ctx context.Context, caller, from, to domain.Address, id domain.AssetID, price *big.Int) error {
	if from.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "from cannot be the zero address")
	}
	if price == nil || price.Sign() < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "price must be a non-negative amount")
	}
	price = new(big.Int).Set(price)

	return e.exec.RunInTx(ctx, "transfer_with_price", func(ctx context.Context, tx *ledger.Tx) error {
		if err := e.enterPriced(); err != nil {
			return err
		}
		defer e.leavePriced()
		return e.move(ctx, tx, caller, from, to, id, price)
	})
}

// move is the single ownership-change gate. A non-zero from must match the
// current owner. It writes exactly one provenance record, carrying price or
// zero when price is nil, and only then hands the receipt to the hook.
func (e *Engine) move(ctx context.Context, tx *ledger.Tx, caller, from, to domain.Address, id domain.AssetID, price *big.Int) error {
	if err := e.breaker.RequireRunning(ctx); err != nil {
		return err
	}
	a, err := e.store.FindByID(ctx, id)
	if err != nil {
		return storeError(err, id)
	}
	if !e.isAuthorized(a, caller) {
		return dErrors.Newf(dErrors.CodeUnauthorized, "%s may not transfer asset %s", caller, id)
	}
	if !from.IsZero() && from != a.Owner {
		return dErrors.Newf(dErrors.CodeUnauthorized, "%s does not own asset %s", from, id)
	}
	if !a.Compliant {
		return dErrors.Newf(dErrors.CodeAssetNotCompliant, "asset %s is not compliant", id)
	}
	if a.Status != domain.AssetStatusActive {
		return dErrors.Newf(dErrors.CodeAssetNotActive, "asset %s is %s", id, a.Status)
	}
	if to.IsZero() || !e.verifier.IsVerified(ctx, to) {
		return dErrors.Newf(dErrors.CodeRecipientNotVerified, "recipient %s is not verified", to)
	}

	prev := a.Owner
	a.Owner = to
	if err := e.store.Update(ctx, a); err != nil {
		return storeError(err, id)
	}
	recorded := new(big.Int)
	if price != nil {
		recorded.Set(price)
	}
	err = e.store.AppendTransfer(ctx, asset.TransferRecord{
		AssetID:   id,
		From:      prev,
		To:        to,
		Timestamp: tx.Now(),
		Price:     recorded,
	})
	if err != nil {
		return storeError(err, id)
	}
	e.clearApproval(ctx, id)

	tx.Emit(events.Event{
		Type:    events.TypeAssetTransferred,
		Actor:   caller,
		AssetID: events.ForAsset(id),
		From:    prev,
		To:      to,
		Price:   recorded.String(),
	})
	tx.OnCommit(func() {
		e.completed(ctx, caller, prev, to, id, price)
	})

	if e.hook != nil {
		receipt := Receipt{Operator: caller, From: prev, To: to, AssetID: id, Price: price}
		if err := e.hook.OnAssetReceived(ctx, receipt); err != nil {
			if dErrors.CodeOf(err) != "" {
				return err
			}
			return dErrors.Wrap(err, dErrors.CodeReceiptRejected, "recipient rejected asset")
		}
	}
	return nil
}

func (e *Engine) completed(ctx context.Context, caller, from, to domain.Address, id domain.AssetID, price *big.Int) {
	kind := "plain"
	attrs := []any{
		"asset_id", id.String(),
		"from", from.String(),
		"to", to.String(),
		"actor", caller.String(),
	}
	if price != nil {
		kind = "priced"
		attrs = append(attrs, "price", price.String())
	}
	e.metrics.IncTransfers(kind)
	logger.LogAudit(ctx, e.logger, string(events.TypeAssetTransferred), append(attrs, "kind", kind)...)
}

func (e *Engine) enterPriced() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pricedInProgress {
		return dErrors.New(dErrors.CodeReentrantCall, "priced transfer already in progress")
	}
	e.pricedInProgress = true
	return nil
}

func (e *Engine) leavePriced() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pricedInProgress = false
}

func storeError(err error, id domain.AssetID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeAssetNotFound, "asset %s not found", id)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "asset store failure")
}
