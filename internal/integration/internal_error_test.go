package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"transit_feed_proxy/internal/cache"
	"transit_feed_proxy/internal/obs"
	"transit_feed_proxy/internal/policy"
	"transit_feed_proxy/internal/proxy"
	"transit_feed_proxy/internal/runtime"
	"transit_feed_proxy/internal/upstream"
)

type panickingResolver struct{}

func (panickingResolver) Resolve(string) (policy.Resource, bool) {
	panic("resolver blew up")
}

func TestUnhandledPanicBecomes500WithoutDetailLeak(t *testing.T) {
	handler := &proxy.Handler{
		Resolver: panickingResolver{},
		Cache:    cache.New(cache.NewMemoryStore(cache.MaxCachedBytes), cache.NewCoalescer(0)),
		Upstream: upstream.NewClient(upstream.Config{}),
		Metrics:  obs.NewMetrics(),
		Inflight: runtime.NewInflightTracker(),
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/resource/feed-a")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	var body proxy.ProxyErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("error body not json: %v", err)
	}
	if body.ErrorCategory != "internal_error" {
		t.Fatalf("expected internal_error, got %q", body.ErrorCategory)
	}
	if strings.Contains(body.Message, "blew up") {
		t.Fatal("panic detail must not leak into the response")
	}
}
