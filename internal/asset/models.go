package asset

import (
	"math/big"
	"time"

	"rwaledger/pkg/domain"
)

// Asset is one tokenized real-world asset.
//
// Invariants:
//   - ID is assigned at registration and never changes or gets reused.
//   - Owner changes only through the transfer engine.
//   - Valuation is non-negative.
//   - Assets are never deleted.
type Asset struct {
	ID           domain.AssetID
	Owner        domain.Address
	Type         domain.AssetType
	MetadataURI  string
	Compliant    bool
	Status       domain.AssetStatus
	Valuation    *big.Int
	RegisteredAt time.Time
}

// Clone returns a deep copy, so callers can never mutate stored state.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	c := *a
	if a.Valuation != nil {
		c.Valuation = new(big.Int).Set(a.Valuation)
	}
	return &c
}

// TransferRecord is one entry of an asset's provenance. Records are appended in
// commit order and never modified.
type TransferRecord struct {
	AssetID   domain.AssetID
	From      domain.Address
	To        domain.Address
	Timestamp time.Time
	Price     *big.Int
}

func (r TransferRecord) clone() TransferRecord {
	if r.Price != nil {
		r.Price = new(big.Int).Set(r.Price)
	}
	return r
}
