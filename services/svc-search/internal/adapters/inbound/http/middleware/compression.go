package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"go.opentelemetry.io/otel/attribute"
)

const (
	encodingGzip   = "gzip"
	encodingBrotli = "br"

	compressionAlgorithmKey  = "compression.algorithm"
	compressionSkipReasonKey = "compression.skip_reason"

	httpCompressionTotal        = "http.compression"
	httpCompressionSavedBytes   = "http.compression.saved_bytes"
	httpCompressionSkippedTotal = "http.compression.skipped"

	skipReasonBelowMinSize    = "below_min_size"
	skipReasonNonCompressible = "non_compressible_type"
)

// serverPreference breaks ties between encodings of equal client quality.
var serverPreference = []string{encodingGzip, encodingBrotli}

var compressibleTypes = []string{"application/json", "application/problem+json", "text/plain"}

type encoderPools struct {
	gzip   map[int]*sync.Pool
	brotli map[int]*sync.Pool
	mu     sync.Mutex
}

var pools = &encoderPools{
	gzip:   make(map[int]*sync.Pool),
	brotli: make(map[int]*sync.Pool),
}

func (p *encoderPools) get(encoding string, level int) (*sync.Pool, io.WriteCloser) {
	p.mu.Lock()
	defer p.mu.Unlock()

	byLevel := p.gzip
	newFn := func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, level)

		return w
	}

	if encoding == encodingBrotli {
		byLevel = p.brotli
		newFn = func() any { return brotli.NewWriterLevel(io.Discard, level) }
	}

	pool, ok := byLevel[level]
	if !ok {
		pool = &sync.Pool{New: newFn}
		byLevel[level] = pool
	}

	return pool, pool.Get().(io.WriteCloser)
}

// Compression encodes JSON responses of at least cfg.MinSize bytes with gzip
// or brotli, whichever the client prefers in Accept-Encoding.
func Compression(cfg config.Compression, metricsClient metrics.Client) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
			if encoding == "" || hasPathPrefix(r.URL.Path, cfg.SkipPaths) {
				next.ServeHTTP(w, r)

				return
			}

			w.Header().Add("Vary", "Accept-Encoding")

			buffered := NewBufferedResponseWriter(w)
			next.ServeHTTP(buffered, r)

			body := buffered.Body()

			switch {
			case !isCompressible(w.Header().Get("Content-Type")):
				countSkip(r, metricsClient, skipReasonNonCompressible)
				_ = buffered.FlushToClient()

				return
			case len(body) < cfg.MinSize:
				countSkip(r, metricsClient, skipReasonBelowMinSize)
				_ = buffered.FlushToClient()

				return
			}

			compressed, err := encode(encoding, cfg.Level, body)
			if err != nil {
				_ = buffered.FlushToClient()

				return
			}

			w.Header().Set("Content-Encoding", encoding)
			w.Header().Set("Content-Length", strconv.Itoa(len(compressed)))
			w.WriteHeader(buffered.StatusCode())
			_, _ = w.Write(compressed)

			if metricsClient != nil {
				attrs := attribute.String(compressionAlgorithmKey, encoding)
				metricsClient.Inc(r.Context(), httpCompressionTotal, int64(1), attrs)
				if saved := len(body) - len(compressed); saved > 0 {
					metricsClient.Inc(r.Context(), httpCompressionSavedBytes, int64(saved), attrs)
				}
			}
		})
	}
}

func encode(encoding string, level int, body []byte) ([]byte, error) {
	var out bytes.Buffer

	pool, encoder := pools.get(encoding, level)
	defer pool.Put(encoder)

	switch e := encoder.(type) {
	case *gzip.Writer:
		e.Reset(&out)
	case *brotli.Writer:
		e.Reset(&out)
	}

	if _, err := encoder.Write(body); err != nil {
		return nil, err
	}

	if err := encoder.Close(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

func countSkip(r *http.Request, metricsClient metrics.Client, reason string) {
	if metricsClient == nil {
		return
	}

	metricsClient.Inc(r.Context(), httpCompressionSkippedTotal, int64(1),
		attribute.String(compressionSkipReasonKey, reason))
}

// negotiateEncoding picks the supported encoding with the highest quality
// value, or "" when the client accepts none of them.
func negotiateEncoding(header string) string {
	best, bestQuality, bestRank := "", 0.0, len(serverPreference)

	for part := range strings.SplitSeq(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))

		quality := 1.0
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			parsed, err := strconv.ParseFloat(q, 64)
			if err != nil {
				continue
			}

			quality = parsed
		}

		if name == "*" {
			name = serverPreference[0]
		}

		rank := slices.Index(serverPreference, name)
		if rank < 0 || quality <= 0 {
			continue
		}

		if quality > bestQuality || (quality == bestQuality && rank < bestRank) {
			best, bestQuality, bestRank = name, quality, rank
		}
	}

	return best
}

func isCompressible(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")

	return slices.Contains(compressibleTypes, strings.ToLower(strings.TrimSpace(mediaType)))
}
