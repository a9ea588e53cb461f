// Package httptransport serves the ops endpoints and read-only ledger queries
// used for reconciliation against event consumers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rwaledger/internal/asset"
	"rwaledger/pkg/domain"
	"rwaledger/pkg/platform/httputil"
	"rwaledger/pkg/requestcontext"
)

// AssetReader is the query side of the asset registry.
type AssetReader interface {
	GetAssetInfo(ctx context.Context, id domain.AssetID) (*asset.Asset, error)
	GetTransferHistory(ctx context.Context, id domain.AssetID) ([]asset.TransferRecord, error)
	GetAssetsOwnedBy(ctx context.Context, owner domain.Address) ([]domain.AssetID, error)
	TotalAssets(ctx context.Context) (uint64, error)
}

type VerificationReader interface {
	IsVerified(ctx context.Context, account domain.Address) bool
}

type PauseReader interface {
	Paused(ctx context.Context) bool
}

// SeqReader reports the newest committed event.
type SeqReader interface {
	LastSeq() uint64
}

type Handler struct {
	assets   AssetReader
	verifier VerificationReader
	breaker  PauseReader
	log      SeqReader
	logger   *slog.Logger
}

func NewHandler(assets AssetReader, verifier VerificationReader, breaker PauseReader, log SeqReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		assets:   assets,
		verifier: verifier,
		breaker:  breaker,
		log:      log,
		logger:   logger,
	}
}

// Register mounts the query endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/status", h.HandleStatus)
	r.Get("/assets/{id}", h.HandleGetAsset)
	r.Get("/assets/{id}/history", h.HandleGetHistory)
	r.Get("/accounts/{address}/assets", h.HandleOwnedAssets)
	r.Get("/accounts/{address}/verification", h.HandleVerification)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := h.assets.TotalAssets(ctx)
	if err != nil {
		h.fail(w, r, "read ledger status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Paused:      h.breaker.Paused(ctx),
		TotalAssets: total,
		LastSeq:     h.log.LastSeq(),
	})
}

func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAssetID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.assets.GetAssetInfo(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get asset", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAsset(a))
}

func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAssetID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.assets.GetTransferHistory(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get transfer history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHistory(id, records))
}

func (h *Handler) HandleOwnedAssets(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ids, err := h.assets.GetAssetsOwnedBy(r.Context(), owner)
	if err != nil {
		h.fail(w, r, "list owned assets", err)
		return
	}
	if ids == nil {
		ids = []domain.AssetID{}
	}
	httputil.WriteJSON(w, http.StatusOK, OwnedAssetsResponse{Owner: owner, Assets: ids})
}

func (h *Handler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerificationResponse{
		Account:  account,
		Verified: h.verifier.IsVerified(r.Context(), account),
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg+" failed",
		"request_id", requestcontext.RequestID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	httputil.WriteError(w, err)
}
