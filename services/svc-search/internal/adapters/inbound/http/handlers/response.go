package handlers

import (
	"net/http"
	"time"

	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/inbound/http/middleware"
	"github.com/goccy/go-json"
)

const (
	apiVersion = "v1"

	contentTypeHeader = "Content-Type"
	applicationJSON   = "application/json"

	// W3C Trace Context traceparent header format components.
	// Format: {version}-{trace-id}-{parent-id}-{trace-flags}
	traceparentTraceIDStart = 3
	traceparentTraceIDEnd   = traceparentTraceIDStart + 32
	traceparentMinLength    = 55
)

type (
	// ResponseMeta contains response metadata for tracing and API versioning.
	ResponseMeta struct {
		RequestID  string `json:"requestId"`
		TraceID    string `json:"traceId,omitempty"`
		APIVersion string `json:"apiVersion"`
	}

	// EnvelopedResponse wraps response data with metadata.
	EnvelopedResponse struct {
		Data any          `json:"data"`
		Meta ResponseMeta `json:"meta"`
	}

	ErrorResponse struct {
		Code      string    `json:"code"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}
)

// NewMeta creates response metadata from the request context.
func NewMeta(r *http.Request) ResponseMeta {
	return ResponseMeta{
		RequestID:  middleware.GetRequestID(r.Context()),
		TraceID:    ExtractTraceID(r),
		APIVersion: apiVersion,
	}
}

// ExtractTraceID extracts the trace ID from the traceparent header.
// Example: 00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01
func ExtractTraceID(r *http.Request) string {
	traceparent := r.Header.Get("traceparent")
	if len(traceparent) < traceparentMinLength {
		return ""
	}

	return traceparent[traceparentTraceIDStart:traceparentTraceIDEnd]
}

func writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set(contentTypeHeader, applicationJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSONResponse(w, status, EnvelopedResponse{
		Data: data,
		Meta: NewMeta(r),
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSONResponse(w, status, ErrorResponse{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
