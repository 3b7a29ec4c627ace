package integration

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestCacheServedWithinTTLAndRefreshedAfter(t *testing.T) {
	var upstreamCount int32
	srv := startUpstreamServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&upstreamCount, 1)
		_, _ = fmt.Fprintf(w, "version-%d", n)
	}))

	p := startProxy(t, httpResource("feed-a", srv.URL, 60*time.Second))
	client := &http.Client{Timeout: 2 * time.Second}

	resp, body := doRequest(t, client, http.MethodGet, p.Server.URL+"/resource/feed-a", nil)
	if resp.StatusCode != http.StatusOK || string(body) != "version-1" {
		t.Fatalf("first request: got %d %q", resp.StatusCode, body)
	}

	// Within the TTL window the cached entry is served with no new
	// upstream call.
	p.Clock.Advance(59 * time.Second)
	_, body = doRequest(t, client, http.MethodGet, p.Server.URL+"/resource/feed-a", nil)
	if string(body) != "version-1" {
		t.Fatalf("expected cached body, got %q", body)
	}
	if count := atomic.LoadInt32(&upstreamCount); count != 1 {
		t.Fatalf("expected 1 upstream call within ttl, got %d", count)
	}

	// Past the TTL the entry expires and the next request recomputes.
	p.Clock.Advance(2 * time.Second)
	_, body = doRequest(t, client, http.MethodGet, p.Server.URL+"/resource/feed-a", nil)
	if string(body) != "version-2" {
		t.Fatalf("expected refreshed body, got %q", body)
	}
	if count := atomic.LoadInt32(&upstreamCount); count != 2 {
		t.Fatalf("expected 2 upstream calls after expiry, got %d", count)
	}
}
