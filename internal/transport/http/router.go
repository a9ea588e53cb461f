package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rwaledger/pkg/platform/middleware/requestid"
)

// NewRouter mounts the ops endpoints and the read-only ledger queries.
// Mutations are not exposed over HTTP.
func NewRouter(h *Handler, health *Health, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)

	r.Get("/healthz", health.Live)
	r.Get("/readyz", health.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		h.Register(r)
	})
	return r
}
