// Package requestid tags every request with an id for logs and audit lines.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"rwaledger/pkg/requestcontext"
)

// Header carries an inbound id from a proxy and echoes it on the response.
const Header = "X-Request-ID"

// Middleware reuses a well-formed inbound X-Request-ID or generates one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}
