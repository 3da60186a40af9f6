package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	headerETag        = "ETag"
	headerIfNoneMatch = "If-None-Match"
)

// ETag returns the strong entity tag of a response body.
func ETag(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}

// ConditionalGET tags successful GET responses with an ETag over the body and
// answers 304 Not Modified when the client already holds that version.
func ConditionalGET() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)

				return
			}

			buffered := NewBufferedResponseWriter(w)
			next.ServeHTTP(buffered, r)

			if buffered.StatusCode() != http.StatusOK {
				_ = buffered.FlushToClient()

				return
			}

			etag := ETag(buffered.Body())
			w.Header().Set(headerETag, etag)

			if etagMatches(r.Header.Get(headerIfNoneMatch), etag) {
				w.Header().Del("Content-Length")
				w.WriteHeader(http.StatusNotModified)

				return
			}

			_ = buffered.FlushToClient()
		})
	}
}

func etagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}

	if strings.TrimSpace(ifNoneMatch) == "*" {
		return true
	}

	for value := range strings.SplitSeq(ifNoneMatch, ",") {
		value = strings.TrimPrefix(strings.TrimSpace(value), "W/")
		if value == etag {
			return true
		}
	}

	return false
}
