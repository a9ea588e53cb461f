package httptransport

import (
	"time"

	"rwaledger/internal/asset"
	"rwaledger/pkg/domain"
)

type AssetResponse struct {
	ID           domain.AssetID     `json:"id"`
	Owner        domain.Address     `json:"owner"`
	Type         domain.AssetType   `json:"type"`
	MetadataURI  string             `json:"metadata_uri"`
	Compliant    bool               `json:"compliant"`
	Status       domain.AssetStatus `json:"status"`
	Valuation    string             `json:"valuation"`
	RegisteredAt time.Time          `json:"registered_at"`
}

func FromAsset(a *asset.Asset) AssetResponse {
	return AssetResponse{
		ID:           a.ID,
		Owner:        a.Owner,
		Type:         a.Type,
		MetadataURI:  a.MetadataURI,
		Compliant:    a.Compliant,
		Status:       a.Status,
		Valuation:    a.Valuation.String(),
		RegisteredAt: a.RegisteredAt,
	}
}

type TransferRecordResponse struct {
	From      domain.Address `json:"from"`
	To        domain.Address `json:"to"`
	Timestamp time.Time      `json:"timestamp"`
	Price     string         `json:"price"`
}

type HistoryResponse struct {
	AssetID   domain.AssetID           `json:"asset_id"`
	Transfers []TransferRecordResponse `json:"transfers"`
}

func FromHistory(id domain.AssetID, records []asset.TransferRecord) HistoryResponse {
	out := HistoryResponse{AssetID: id, Transfers: make([]TransferRecordResponse, 0, len(records))}
	for _, r := range records {
		out.Transfers = append(out.Transfers, TransferRecordResponse{
			From:      r.From,
			To:        r.To,
			Timestamp: r.Timestamp,
			Price:     r.Price.String(),
		})
	}
	return out
}

type OwnedAssetsResponse struct {
	Owner  domain.Address   `json:"owner"`
	Assets []domain.AssetID `json:"assets"`
}

type VerificationResponse struct {
	Account  domain.Address `json:"account"`
	Verified bool           `json:"verified"`
}

type StatusResponse struct {
	Paused      bool   `json:"paused"`
	TotalAssets uint64 `json:"total_assets"`
	LastSeq     uint64 `json:"last_event_seq"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}
