package proxy

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
)

const RequestIDHeader = "X-Request-Id"

// Error categories written to clients and labels. Every component-level
// failure is mapped to one of these at the dispatcher boundary; no raw
// internal error value reaches the transport layer.
const (
	CategoryNotFound         = "not_found"
	CategoryMethodNotAllowed = "method_not_allowed"
	CategoryBadRequest       = "bad_request"
	CategoryForbidden        = "forbidden"
	CategoryBadGateway       = "bad_gateway"
	CategoryInternal         = "internal_error"
)

type ProxyErrorBody struct {
	Status        int    `json:"status"`
	RequestID     string `json:"request_id"`
	ErrorCategory string `json:"error_category"`
	Message       string `json:"message"`
}

func WriteProxyError(w http.ResponseWriter, requestID string, status int, category string, message string) {
	if recorder, ok := w.(errorCategoryWriter); ok {
		recorder.SetErrorCategory(category)
	}
	w.Header().Set(RequestIDHeader, requestID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProxyErrorBody{
		Status:        status,
		RequestID:     requestID,
		ErrorCategory: category,
		Message:       message,
	})
}

func NewRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
