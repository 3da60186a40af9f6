package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/architeacher/smartsearch/pkg/idempotency"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
)

const maxIdempotentBodySize = 1 << 20

// Idempotency replays the stored response when a request arrives again with
// the same key and payload. Requests without the key header pass through.
// Only 2xx responses are stored.
func Idempotency(
	cache ports.IdempotencyCache,
	cfg config.Idempotency,
	log logger.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(cfg.HeaderName)
			if key == "" {
				next.ServeHTTP(w, r)

				return
			}

			if err := idempotency.Validate(key); err != nil {
				writeProblem(w, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", err.Error())

				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBodySize))
			if err != nil {
				writeProblem(w, http.StatusBadRequest, "INVALID_JSON", "failed to read request body")

				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			cacheKey := idempotency.CacheKey(r.Method, r.URL.Path, key)
			fingerprint := idempotency.Fingerprint(body)

			reqLog := log.WithContext(ctx).With().Str("idempotency_key", key).Logger()

			cached, err := cache.Get(ctx, cacheKey)
			if err != nil {
				reqLog.Warn().Err(err).Msg("idempotency cache get failed")
				degrade(w, r, next, cfg)

				return
			}

			if cached != nil {
				if !cached.Matches(fingerprint) {
					writeProblem(w, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED",
						"the idempotency key was already used with a different payload")

					return
				}

				writeRecord(w, cfg, cached)

				return
			}

			acquired, err := cache.SetLock(ctx, cacheKey, cfg.LockTTL)
			if err != nil {
				reqLog.Warn().Err(err).Msg("idempotency cache lock failed")
				degrade(w, r, next, cfg)

				return
			}

			if !acquired {
				writeProblem(w, http.StatusConflict, "REQUEST_IN_PROGRESS",
					"a request with this idempotency key is already being processed")

				return
			}

			defer func() {
				if err := cache.ReleaseLock(ctx, cacheKey); err != nil {
					reqLog.Warn().Err(err).Msg("failed to release idempotency lock")
				}
			}()

			buffered := NewBufferedResponseWriter(w)
			next.ServeHTTP(buffered, r.WithContext(idempotency.WithKey(ctx, key)))

			if status := buffered.StatusCode(); status >= http.StatusOK && status < http.StatusMultipleChoices {
				record := &idempotency.Record{
					Fingerprint: fingerprint,
					StatusCode:  status,
					Headers:     firstHeaderValues(w.Header()),
					Body:        bytes.Clone(buffered.Body()),
					CreatedAt:   time.Now().UTC(),
				}

				if err := cache.Set(ctx, cacheKey, record, cfg.CacheTTL); err != nil {
					reqLog.Warn().Err(err).Msg("failed to store idempotency record")
				}
			}

			if err := buffered.FlushToClient(); err != nil {
				reqLog.Debug().Err(err).Msg("failed to write response")
			}
		})
	}
}

func degrade(w http.ResponseWriter, r *http.Request, next http.Handler, cfg config.Idempotency) {
	if cfg.GracefulDegraded {
		next.ServeHTTP(w, r)

		return
	}

	writeProblem(w, http.StatusServiceUnavailable, "CACHE_UNAVAILABLE",
		"idempotency service temporarily unavailable")
}

func writeRecord(w http.ResponseWriter, cfg config.Idempotency, record *idempotency.Record) {
	for key, value := range record.Headers {
		w.Header().Set(key, value)
	}

	w.Header().Set(cfg.ReplayedHeader, "true")
	w.WriteHeader(record.StatusCode)
	_, _ = w.Write(record.Body)
}

// firstHeaderValues snapshots the response headers except the ones that
// identify the request.
func firstHeaderValues(header http.Header) map[string]string {
	headers := make(map[string]string, len(header))

	for key, values := range header {
		if key == RequestIDHeader || key == CorrelationIDHeader {
			continue
		}

		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	return headers
}
