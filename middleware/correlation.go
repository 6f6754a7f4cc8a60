package middleware

import (
	"net/http"

	apolloAuth "github.com/MrEthical07/apolloAuth"
	"github.com/google/uuid"
)

// CorrelationHeader is read from requests and echoed on responses.
const CorrelationHeader = "X-Correlation-ID"

// Correlation takes the request's X-Correlation-ID, or generates one, stores
// it with apolloAuth.WithCorrelationID and echoes it on the response.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(apolloAuth.WithCorrelationID(r.Context(), id)))
	})
}
