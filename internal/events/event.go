// Package events is the ordered stream of ledger mutations.
//
// Every successful mutation commits one or more Events to the Log, each with a
// monotonically increasing Seq. The Relay delivers committed events to Sinks
// at-least-once; consumers apply them idempotently keyed by Seq. Events carry
// old and new values so a mirror can rebuild state without querying the ledger.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rwaledger/pkg/domain"
)

// Type names the mutation an event records.
type Type string

const (
	TypeAssetRegistered   Type = "asset_registered"
	TypeAssetTransferred  Type = "asset_transferred"
	TypeComplianceChanged Type = "compliance_changed"
	TypeStatusChanged     Type = "status_changed"
	TypeMetadataChanged   Type = "metadata_changed"
	TypeValuationChanged  Type = "valuation_changed"

	TypeVerificationChanged      Type = "verification_changed"
	TypeBatchVerificationChanged Type = "batch_verification_changed"

	TypePaused   Type = "paused"
	TypeUnpaused Type = "unpaused"

	TypeRoleGranted Type = "role_granted"
	TypeRoleRevoked Type = "role_revoked"

	TypeApproval       Type = "approval"
	TypeApprovalForAll Type = "approval_for_all"
)

// Event is one committed ledger mutation.
//
// Seq and ID are assigned by the Log at commit; producers leave them zero.
// Optional fields are omitted from the wire form when unset.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Seq       uint64          `json:"seq"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     domain.Address  `json:"actor,omitzero"`
	AssetID   *domain.AssetID `json:"asset_id,omitempty"`
	Account   domain.Address  `json:"account,omitzero"`
	From      domain.Address  `json:"from,omitzero"`
	To        domain.Address  `json:"to,omitzero"`
	Role      string          `json:"role,omitempty"`
	Old       string          `json:"old,omitempty"`
	New       string          `json:"new,omitempty"`
	Price     string          `json:"price,omitempty"`
	Count     int             `json:"count,omitempty"`
}

// ForAsset returns a pointer suitable for Event.AssetID.
func ForAsset(id domain.AssetID) *domain.AssetID {
	return &id
}

// Key is the partitioning key: events about the same asset (or account) keep
// their relative order in partitioned sinks.
func (e Event) Key() string {
	switch {
	case e.AssetID != nil:
		return "asset:" + e.AssetID.String()
	case !e.Account.IsZero():
		return "account:" + e.Account.String()
	default:
		return "ledger"
	}
}

// Encode returns the JSON wire form.
func Encode(e Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %d: %w", e.Seq, err)
	}
	return b, nil
}

// Decode parses the JSON wire form.
func Decode(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}
