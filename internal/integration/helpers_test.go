package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"transit_feed_proxy/internal/cache"
	"transit_feed_proxy/internal/obs"
	"transit_feed_proxy/internal/policy"
	"transit_feed_proxy/internal/proxy"
	"transit_feed_proxy/internal/runtime"
	"transit_feed_proxy/internal/upstream"
)

const testPublicRef = "opendata"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testProxy struct {
	Server  *httptest.Server
	Clock   *fakeClock
	Entries *cache.MemoryStore
	Handler *proxy.Handler
}

func startProxy(t *testing.T, resources ...policy.Resource) *testProxy {
	t.Helper()

	byID := make(map[string]policy.Resource, len(resources))
	for _, resource := range resources {
		byID[resource.ID] = resource
	}
	snap := &runtime.Snapshot{
		Resources: byID,
		Version:   "test",
		CreatedAt: time.Now(),
		Source:    "test",
	}

	clock := newFakeClock()
	entries := cache.NewMemoryStore(cache.MaxCachedBytes)
	entries.SetNowFunc(clock.Now)
	cacheLayer := cache.New(entries, cache.NewCoalescer(cache.DefaultMaxFlights))

	handler := &proxy.Handler{
		Resolver:           runtime.NewStore(snap),
		Cache:              cacheLayer,
		Upstream:           upstream.NewClient(upstream.Config{}),
		Metrics:            obs.NewMetrics(),
		Inflight:           runtime.NewInflightTracker(),
		PublicRequestorRef: testPublicRef,
	}

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &testProxy{Server: server, Clock: clock, Entries: entries, Handler: handler}
}

func startUpstreamServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func doRequest(t *testing.T, client *http.Client, method, url string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, payload
}

func httpResource(id, targetURL string, ttl time.Duration) policy.Resource {
	return policy.Resource{
		ID:        id,
		Kind:      policy.KindHTTP,
		TargetURL: targetURL,
		TTL:       ttl,
	}
}

func siriResource(id, targetURL, requestorRef string) policy.Resource {
	return policy.Resource{
		ID:           id,
		Kind:         policy.KindSIRI,
		TargetURL:    targetURL,
		RequestorRef: requestorRef,
	}
}
