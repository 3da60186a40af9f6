package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	MinKeyLength = 16
	MaxKeyLength = 128

	keyPrefix = "idempotency:v1:"
)

var (
	ErrKeyTooShort = errors.New("idempotency key must be at least 16 characters")
	ErrKeyTooLong  = errors.New("idempotency key must not exceed 128 characters")
	ErrKeyInvalid  = errors.New("idempotency key contains invalid characters")

	validKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)
)

// Record is a completed response stored under an idempotency key.
type Record struct {
	Fingerprint string            `json:"fingerprint"`
	StatusCode  int               `json:"statusCode"`
	Headers     map[string]string `json:"headers"`
	Body        []byte            `json:"body"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Validate checks the length and alphabet of a client supplied key.
func Validate(key string) error {
	if len(key) < MinKeyLength {
		return ErrKeyTooShort
	}

	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}

	if !validKeyPattern.MatchString(key) {
		return ErrKeyInvalid
	}

	return nil
}

// CacheKey scopes a client key to the method and path it was sent to.
func CacheKey(method, path, key string) string {
	hash := sha256.Sum256([]byte(method + ":" + path + ":" + key))

	return keyPrefix + hex.EncodeToString(hash[:])
}

// LockKey guards the cache key while its first request is in flight.
func LockKey(cacheKey string) string {
	return cacheKey + ":lock"
}

// Fingerprint identifies a request payload.
func Fingerprint(body []byte) string {
	return strconv.FormatUint(xxhash.Sum64(body), 16)
}

// Matches reports whether the record was produced by a request carrying the
// payload with the given fingerprint.
func (r *Record) Matches(fingerprint string) bool {
	return r.Fingerprint == fingerprint
}
