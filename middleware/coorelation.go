package middleware

import (
	c "eventers-ticketing-backend/context"
	"eventers-ticketing-backend/logger"
	"net/http"

	"github.com/google/uuid"
)

const correlationHeader = "Correlation-Id"

// SetCorrelationIDHeader tags the request context with the caller's
// correlation id, minting one when absent, and echoes it on the response.
func SetCorrelationIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(correlationHeader)
		ctx := c.SetContextWithValue(r.Context(), c.ContextKeyCorrelationID, correlationID)
		if len(correlationID) == 0 {
			correlationID = uuid.New().String()
			ctx = c.SetContextWithValue(ctx, c.ContextKeyCorrelationID, correlationID)
			logger.Debugf(ctx, "No correlation id provided. Generated a new one")
			r.Header.Set(correlationHeader, correlationID)
		}
		w.Header().Set(correlationHeader, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
