package proxy

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"transit_feed_proxy/internal/cache"
	"transit_feed_proxy/internal/gunzip"
	"transit_feed_proxy/internal/headers"
	"transit_feed_proxy/internal/obs"
	"transit_feed_proxy/internal/policy"
	"transit_feed_proxy/internal/siri"
)

// serveSiri forwards a SIRI request live. Responses are never cached:
// every request carries its own credential and the answer is
// caller-specific.
func (h *Handler) serveSiri(w *ResponseRecorder, r *http.Request, resource policy.Resource, requestID string, rctx *obs.RequestContext) {
	rctx.CacheStatus = cache.StatusBypass

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxSiriBodyBytes()))
	if err != nil {
		WriteProxyError(w, requestID, http.StatusBadRequest, CategoryBadRequest, "request body unreadable or too large")
		return
	}

	envelope, err := siri.Parse(body)
	if err != nil {
		h.Metrics.RecordSiriReject(resource.ID, "parse")
		WriteProxyError(w, requestID, http.StatusBadRequest, CategoryBadRequest, "malformed SIRI envelope")
		return
	}

	if err := envelope.Authorize(h.PublicRequestorRef); err != nil {
		h.Metrics.RecordSiriReject(resource.ID, "auth")
		WriteProxyError(w, requestID, http.StatusForbidden, CategoryForbidden, "requestor reference not authorized")
		return
	}

	envelope.Rewrite(h.PublicRequestorRef, resource.RequestorRef)
	rewritten, err := envelope.Encode()
	if err != nil {
		WriteProxyError(w, requestID, http.StatusInternalServerError, CategoryInternal, "internal error")
		return
	}

	start := time.Now()
	resp, err := h.Upstream.Post(r.Context(), resource.TargetURL, resource.RequestHeaders, rewritten)
	h.Metrics.ObserveUpstreamRoundTrip(resource.ID, time.Since(start))
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			rctx.ErrorCategory = "client_canceled"
			return
		}
		h.Metrics.RecordUpstreamError(resource.ID, upstreamCategory(err))
		log.Printf("siri upstream call failed resource=%s url=%s: %v", resource.ID, resource.TargetURL, err)
		WriteProxyError(w, requestID, http.StatusBadGateway, CategoryBadGateway, "upstream request failed")
		return
	}

	// Downstream handling always sees plaintext.
	plain, decoded, err := gunzip.Decode(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		h.Metrics.RecordUpstreamError(resource.ID, "decode")
		log.Printf("siri response decode failed resource=%s: %v", resource.ID, err)
		WriteProxyError(w, requestID, http.StatusBadGateway, CategoryBadGateway, "upstream response unreadable")
		return
	}

	hdr := headers.FromHTTP(resp.Header)
	if decoded {
		hdr = hdr.Delete("content-encoding").Delete("content-length")
	}
	hdr = hdr.Lowercase().Filter(h.allowlist())

	writeEntry(w, hdr, resp.Status, plain, requestID)
}
