package middleware

import (
	"context"
	"net/http"

	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/google/uuid"
)

const (
	RequestIDHeader     = "X-Request-Id"
	CorrelationIDHeader = "X-Correlation-Id"
)

// RequestID stores the request and correlation ids under the logger context
// keys, generating a request id when the client sent none.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), logger.ContextKeyRequestID, requestID)
			if correlationID := r.Header.Get(CorrelationIDHeader); correlationID != "" {
				ctx = context.WithValue(ctx, logger.ContextKeyCorrelationID, correlationID)
				w.Header().Set(CorrelationIDHeader, correlationID)
			}

			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(logger.ContextKeyRequestID).(string); ok {
		return id
	}

	return ""
}
