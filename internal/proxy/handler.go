package proxy

import (
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"transit_feed_proxy/internal/cache"
	"transit_feed_proxy/internal/headers"
	"transit_feed_proxy/internal/limits"
	"transit_feed_proxy/internal/obs"
	"transit_feed_proxy/internal/policy"
	"transit_feed_proxy/internal/runtime"
	"transit_feed_proxy/internal/upstream"
)

const ResourcePathPrefix = "/resource/"

// Handler is the proxy dispatcher: it resolves the resource identifier,
// dispatches on policy kind and method, and assembles the response. It is
// the conversion boundary for the whole error taxonomy; anything a
// downstream component fails to classify surfaces here as a 500.
type Handler struct {
	Resolver runtime.Resolver
	Cache    *cache.Cache
	Upstream *upstream.Client
	Metrics  *obs.Metrics
	Inflight *runtime.InflightTracker

	// Allowlist filters response headers on both protocol paths.
	Allowlist map[string]struct{}

	// PublicRequestorRef is the credential SIRI callers must present.
	PublicRequestorRef string

	MaxSiriBodyBytes int64

	// SnapshotVersion is logged with each request when set.
	SnapshotVersion func() string
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Resolver == nil || h.Upstream == nil {
		http.Error(w, "proxy not ready", http.StatusServiceUnavailable)
		return
	}

	h.Inflight.Inc()
	defer h.Inflight.Dec()

	requestID := NewRequestID()
	recorder := NewResponseRecorder(w)
	start := time.Now()

	rctx := obs.RequestContext{
		RequestID:  requestID,
		Method:     r.Method,
		Path:       r.URL.Path,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
	}
	if h.SnapshotVersion != nil {
		rctx.SnapshotVersion = h.SnapshotVersion()
	}

	defer func() {
		rctx.Status = recorder.Status()
		rctx.Duration = time.Since(start)
		rctx.BytesOut = recorder.BytesWritten()
		if rctx.ErrorCategory == "" {
			rctx.ErrorCategory = recorder.ErrorCategory()
		}
		h.Metrics.RecordRequest(rctx.ResourceID, recorder.Status())
		h.Metrics.ObserveRequest(rctx.PolicyKind, rctx.Duration)
		obs.LogAccess(rctx)
	}()

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
			rctx.ErrorCategory = CategoryInternal
			WriteProxyError(recorder, requestID, http.StatusInternalServerError, CategoryInternal, "internal error")
		}
	}()

	id, ok := resourceID(r.URL.Path)
	if !ok {
		WriteProxyError(recorder, requestID, http.StatusNotFound, CategoryNotFound, "unknown resource")
		return
	}

	resource, ok := h.Resolver.Resolve(id)
	if !ok {
		WriteProxyError(recorder, requestID, http.StatusNotFound, CategoryNotFound, "unknown resource")
		return
	}
	rctx.ResourceID = resource.ID
	rctx.PolicyKind = string(resource.Kind)
	rctx.UpstreamURL = resource.TargetURL

	switch resource.Kind {
	case policy.KindHTTP:
		if r.Method != http.MethodGet {
			WriteProxyError(recorder, requestID, http.StatusMethodNotAllowed, CategoryMethodNotAllowed, "resource only serves GET")
			return
		}
		h.serveFeed(recorder, r, resource, requestID, &rctx)
	case policy.KindSIRI:
		if r.Method != http.MethodPost {
			WriteProxyError(recorder, requestID, http.StatusMethodNotAllowed, CategoryMethodNotAllowed, "resource only serves POST")
			return
		}
		h.serveSiri(recorder, r, resource, requestID, &rctx)
	default:
		WriteProxyError(recorder, requestID, http.StatusInternalServerError, CategoryInternal, "internal error")
	}
}

// resourceID extracts the identifier from /resource/{id}. Identifiers do
// not contain slashes.
func resourceID(path string) (string, bool) {
	if !strings.HasPrefix(path, ResourcePathPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(path, ResourcePathPrefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (h *Handler) allowlist() map[string]struct{} {
	if len(h.Allowlist) > 0 {
		return h.Allowlist
	}
	return headers.DefaultAllowlist()
}

func (h *Handler) maxSiriBodyBytes() int64 {
	if h.MaxSiriBodyBytes > 0 {
		return h.MaxSiriBodyBytes
	}
	return limits.Default().MaxSiriBodyBytes
}

func writeEntry(w *ResponseRecorder, hdr headers.List, status int, body []byte, requestID string) {
	hdr.WriteTo(w.Header())
	w.Header().Set(RequestIDHeader, requestID)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
