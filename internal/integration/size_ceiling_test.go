package integration

import (
	"bytes"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestOversizedResponseServedButNotCached(t *testing.T) {
	// 25 MiB, above the 20 MiB cache ceiling.
	oversized := bytes.Repeat([]byte("x"), 25*1024*1024)

	var upstreamCount int32
	srv := startUpstreamServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&upstreamCount, 1)
		_, _ = w.Write(oversized)
	}))

	p := startProxy(t, httpResource("feed-c", srv.URL, time.Minute))
	client := &http.Client{Timeout: 30 * time.Second}

	resp, body := doRequest(t, client, http.MethodGet, p.Server.URL+"/resource/feed-c", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(body) != len(oversized) {
		t.Fatalf("expected full %d byte body, got %d", len(oversized), len(body))
	}
	if p.Entries.Len() != 0 {
		t.Fatal("oversized entry must not be in the store")
	}

	// A second identical request triggers a second upstream call.
	resp, _ = doRequest(t, client, http.MethodGet, p.Server.URL+"/resource/feed-c", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on second request, got %d", resp.StatusCode)
	}
	if count := atomic.LoadInt32(&upstreamCount); count != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", count)
	}
}

func TestBodyAtCeilingIsCached(t *testing.T) {
	exact := bytes.Repeat([]byte("y"), 20*1024*1024)

	var upstreamCount int32
	srv := startUpstreamServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&upstreamCount, 1)
		_, _ = w.Write(exact)
	}))

	p := startProxy(t, httpResource("feed-c", srv.URL, time.Minute))
	client := &http.Client{Timeout: 30 * time.Second}

	doRequest(t, client, http.MethodGet, p.Server.URL+"/resource/feed-c", nil)
	doRequest(t, client, http.MethodGet, p.Server.URL+"/resource/feed-c", nil)
	if count := atomic.LoadInt32(&upstreamCount); count != 1 {
		t.Fatalf("expected 1 upstream call for exactly-at-ceiling body, got %d", count)
	}
}
