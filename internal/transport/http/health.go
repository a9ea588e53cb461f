package httptransport

import (
	"context"
	"net/http"
	"time"

	"rwaledger/pkg/platform/httputil"
)

// Checker is an external dependency reported by /readyz.
type Checker interface {
	Name() string
	Health(ctx context.Context) error
}

// Health serves liveness and readiness.
type Health struct {
	checkers []Checker
	timeout  time.Duration
}

func NewHealth(timeout time.Duration, checkers ...Checker) *Health {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Health{checkers: checkers, timeout: timeout}
}

// Live always answers 200 while the process serves requests.
func (h *Health) Live(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready answers 503 if any checker fails, listing each dependency's state.
func (h *Health) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checkers))
	for _, c := range h.checkers {
		if err := c.Health(ctx); err != nil {
			deps[c.Name()] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[c.Name()] = "ok"
	}
	overall := "ok"
	if status != http.StatusOK {
		overall = "unavailable"
	}
	httputil.WriteJSON(w, status, ReadinessResponse{Status: overall, Dependencies: deps})
}
