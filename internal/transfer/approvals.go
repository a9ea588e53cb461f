package transfer

import (
	"context"
	"strconv"

	"rwaledger/internal/asset"
	"rwaledger/internal/events"
	"rwaledger/internal/ledger"
	"rwaledger/internal/platform/logger"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

// Approve lets spender move asset id once. The owner or one of the owner's
// operators may approve; the zero address clears the approval. Approvals are
// not affected by the breaker.
func (e *Engine) Approve(ctx context.Context, caller domain.Address, id domain.AssetID, spender domain.Address) error {
	return e.exec.RunInTx(ctx, "approve", func(ctx context.Context, tx *ledger.Tx) error {
		a, err := e.store.FindByID(ctx, id)
		if err != nil {
			return storeError(err, id)
		}
		owner := a.Owner
		if caller != owner && !e.isOperator(owner, caller) {
			return dErrors.Newf(dErrors.CodeUnauthorized, "%s may not approve asset %s", caller, id)
		}
		if spender == owner {
			return dErrors.New(dErrors.CodeInvalidInput, "cannot approve the current owner")
		}
		e.setApproval(ctx, id, spender)
		tx.Emit(events.Event{
			Type:    events.TypeApproval,
			Actor:   caller,
			AssetID: events.ForAsset(id),
			From:    owner,
			To:      spender,
		})
		tx.OnCommit(func() {
			logger.LogAudit(ctx, e.logger, string(events.TypeApproval),
				"asset_id", id.String(),
				"owner", owner.String(),
				"spender", spender.String(),
				"actor", caller.String(),
			)
		})
		return nil
	})
}

// SetApprovalForAll grants or withdraws operator's right to move every asset
// the caller owns, now or later.
func (e *Engine) SetApprovalForAll(ctx context.Context, caller, operator domain.Address, approved bool) error {
	if operator.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "operator cannot be the zero address")
	}
	if operator == caller {
		return dErrors.New(dErrors.CodeInvalidInput, "cannot approve yourself as operator")
	}
	return e.exec.RunInTx(ctx, "set_approval_for_all", func(ctx context.Context, tx *ledger.Tx) error {
		e.setOperator(ctx, caller, operator, approved)
		tx.Emit(events.Event{
			Type:    events.TypeApprovalForAll,
			Actor:   caller,
			Account: operator,
			From:    caller,
			New:     strconv.FormatBool(approved),
		})
		tx.OnCommit(func() {
			logger.LogAudit(ctx, e.logger, string(events.TypeApprovalForAll),
				"owner", caller.String(),
				"operator", operator.String(),
				"approved", approved,
			)
		})
		return nil
	})
}

// GetApproved returns the per-asset approval, or the zero address.
func (e *Engine) GetApproved(ctx context.Context, id domain.AssetID) (domain.Address, error) {
	var spender domain.Address
	err := e.exec.View(ctx, func() error {
		if _, err := e.store.FindByID(ctx, id); err != nil {
			return storeError(err, id)
		}
		e.mu.RLock()
		defer e.mu.RUnlock()
		spender = e.approvals[id]
		return nil
	})
	return spender, err
}

// IsApprovedForAll reports whether operator may move every asset of owner.
func (e *Engine) IsApprovedForAll(ctx context.Context, owner, operator domain.Address) bool {
	var ok bool
	err := e.exec.View(ctx, func() error {
		ok = e.isOperator(owner, operator)
		return nil
	})
	if err != nil {
		logger.LogReadFailure(ctx, e.logger, "operator lookup failed", err,
			"owner", owner.String(),
			"operator", operator.String(),
		)
		return false
	}
	return ok
}

func (e *Engine) isAuthorized(a *asset.Asset, caller domain.Address) bool {
	if caller.IsZero() {
		return false
	}
	if caller == a.Owner {
		return true
	}
	e.mu.RLock()
	approved := e.approvals[a.ID]
	e.mu.RUnlock()
	return approved == caller || e.isOperator(a.Owner, caller)
}

func (e *Engine) isOperator(owner, operator domain.Address) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.operators[owner][operator]
	return ok
}

func (e *Engine) setApproval(ctx context.Context, id domain.AssetID, spender domain.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, had := e.approvals[id]
	if spender.IsZero() {
		delete(e.approvals, id)
	} else {
		e.approvals[id] = spender
	}
	ledger.OnRollback(ctx, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if had {
			e.approvals[id] = prev
		} else {
			delete(e.approvals, id)
		}
	})
}

func (e *Engine) clearApproval(ctx context.Context, id domain.AssetID) {
	e.setApproval(ctx, id, domain.ZeroAddress)
}

func (e *Engine) setOperator(ctx context.Context, owner, operator domain.Address, approved bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set, ok := e.operators[owner]
	if !ok {
		set = make(map[domain.Address]struct{})
		e.operators[owner] = set
	}
	_, was := set[operator]
	if approved {
		set[operator] = struct{}{}
	} else {
		delete(set, operator)
	}
	ledger.OnRollback(ctx, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if was {
			e.operators[owner][operator] = struct{}{}
		} else {
			delete(e.operators[owner], operator)
		}
	})
}
