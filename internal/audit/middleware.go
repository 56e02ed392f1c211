package audit

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vedant-labs/backend-bazaar/internal/common"
	"github.com/vedant-labs/backend-bazaar/internal/obs"
)

// Middleware records mutating requests passing through the wrapped routes.
type Middleware struct {
	Svc Service
	Log zerolog.Logger
}

// Handler audits every non-GET request after the response is written.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		rec := obs.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		actorID, _ := common.UserID(r.Context())
		if err := m.Svc.Record(r.Context(), actorID, r, rec.Status(), nil); err != nil {
			m.Log.Warn().Err(err).Str("path", r.URL.Path).Msg("record audit entry")
		}
	})
}
