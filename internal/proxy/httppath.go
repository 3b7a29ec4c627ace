package proxy

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"transit_feed_proxy/internal/cache"
	"transit_feed_proxy/internal/headers"
	"transit_feed_proxy/internal/obs"
	"transit_feed_proxy/internal/policy"
	"transit_feed_proxy/internal/upstream"
)

const contentDispositionHeader = "content-disposition"

// serveFeed is the GenericHTTP path: the upstream fetch runs behind the
// single-flight cache keyed by the resource identifier.
func (h *Handler) serveFeed(w *ResponseRecorder, r *http.Request, resource policy.Resource, requestID string, rctx *obs.RequestContext) {
	key := cacheKey(resource.ID)

	// The compute must outlive a departing client: other waiters on the
	// same key still need the result.
	computeCtx := context.WithoutCancel(r.Context())

	entry, status, err := h.Cache.FetchOrCompute(r.Context(), key, func() (cache.Outcome, error) {
		return h.fetchFeed(computeCtx, resource)
	})
	rctx.CacheStatus = status
	h.Metrics.RecordCache(resource.ID, status)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Client went away while waiting on a shared flight. Nothing
			// left to deliver.
			rctx.ErrorCategory = "client_canceled"
			return
		}
		WriteProxyError(w, requestID, http.StatusInternalServerError, CategoryInternal, "internal error")
		return
	}

	hdr := entry.Header.Lowercase().Filter(h.allowlist())
	if !resource.ResponseOverrides.Has(contentDispositionHeader) {
		hdr = hdr.Set(contentDispositionHeader, "attachment")
	}
	for _, override := range resource.ResponseOverrides {
		hdr = hdr.Set(override.Name, override.Value)
	}

	if entry.Status == http.StatusBadGateway && status != cache.StatusHit {
		rctx.ErrorCategory = CategoryBadGateway
	}
	writeEntry(w, hdr, entry.Status, entry.Body, requestID)
}

func (h *Handler) fetchFeed(ctx context.Context, resource policy.Resource) (cache.Outcome, error) {
	start := time.Now()
	resp, err := h.Upstream.Get(ctx, resource.TargetURL, resource.RequestHeaders)
	h.Metrics.ObserveUpstreamRoundTrip(resource.ID, time.Since(start))
	if err != nil {
		h.Metrics.RecordUpstreamError(resource.ID, upstreamCategory(err))
		log.Printf("upstream fetch failed resource=%s url=%s: %v", resource.ID, resource.TargetURL, err)
		return cache.Ignore(badGatewayEntry()), nil
	}

	entry := cache.Entry{
		Status: resp.Status,
		Header: headers.FromHTTP(resp.Header),
		Body:   resp.Body,
	}
	if size := int64(len(resp.Body)); size > cache.MaxCachedBytes {
		h.Metrics.RecordOversizeBypass(resource.ID)
		log.Printf("response exceeds cache ceiling resource=%s size=%d", resource.ID, size)
		return cache.Ignore(entry), nil
	}
	return cache.Commit(entry, resource.TTL), nil
}

func cacheKey(id string) string {
	return "resource:" + id
}

// badGatewayEntry is the uncacheable placeholder returned when an
// upstream fetch fails, so the next request retries immediately.
func badGatewayEntry() cache.Entry {
	return cache.Entry{
		Status: http.StatusBadGateway,
		Header: headers.List{{Name: "content-type", Value: "text/plain; charset=utf-8"}},
		Body:   []byte("Bad Gateway"),
	}
}

func upstreamCategory(err error) string {
	var ue *upstream.Error
	if errors.As(err, &ue) {
		return ue.Category
	}
	return upstream.CategoryOther
}
