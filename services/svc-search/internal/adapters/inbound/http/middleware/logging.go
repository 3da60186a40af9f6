package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/architeacher/smartsearch/pkg/logger"
)

var healthEndpoints = []string{
	"/v1/health",
	"/v1/liveness",
	"/v1/readiness",
	"/metrics",
}

type AccessLogConfig struct {
	IncludeQueryParams bool
	LogHealthChecks    bool
}

// AccessLogger logs one line per request. Server errors are logged at
// error level and client errors at warn level.
func AccessLogger(log logger.Logger, cfg AccessLogConfig) func(http.Handler) http.Handler {
	log = log.Component("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.LogHealthChecks && isHealthEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)

				return
			}

			start := time.Now()
			wrapped := NewStatusRecorder(w)

			next.ServeHTTP(wrapped, r)

			reqLogger := log.WithContext(r.Context())

			event := reqLogger.Info()
			switch status := wrapped.StatusCode(); {
			case status >= http.StatusInternalServerError:
				event = reqLogger.Error()
			case status >= http.StatusBadRequest:
				event = reqLogger.Warn()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Int("status", wrapped.StatusCode()).
				Uint64("bytes", wrapped.BytesWritten()).
				Int64("duration_ms", time.Since(start).Milliseconds())

			if cfg.IncludeQueryParams && r.URL.RawQuery != "" {
				event.Str("query", r.URL.RawQuery)
			}

			if cache := wrapped.Header().Get(CacheStatusHeader); cache != "" {
				event.Str("cache", cache)
			}

			event.Send()
		})
	}
}

func isHealthEndpoint(path string) bool {
	path = strings.TrimSuffix(path, "/")

	for _, endpoint := range healthEndpoints {
		if path == endpoint {
			return true
		}
	}

	return false
}
