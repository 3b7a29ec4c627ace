package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"transit_feed_proxy/internal/headers"
)

// Error categories surfaced to metrics and logs.
const (
	CategoryTimeout       = "timeout"
	CategoryConnectFailed = "connect_failed"
	CategoryOther         = "other"
)

// Error is any failure reaching an upstream provider. The proxy never
// retries; the caller decides what a failed fetch means.
type Error struct {
	URL      string
	Category string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream %s: %s: %v", e.URL, e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Response is a fully-read upstream reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type Config struct {
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	RequestTimeout        time.Duration
}

const (
	defaultDialTimeout           = 5 * time.Second
	defaultResponseHeaderTimeout = 30 * time.Second
	defaultRequestTimeout        = 60 * time.Second
)

type Client struct {
	transport      *http.Transport
	requestTimeout time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ResponseHeaderTimeout <= 0 {
		cfg.ResponseHeaderTimeout = defaultResponseHeaderTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		// The proxy decodes bodies itself; the transport must not
		// negotiate or strip an encoding behind its back.
		DisableCompression:  true,
		IdleConnTimeout:     30 * time.Second,
		MaxIdleConns:        256,
		MaxIdleConnsPerHost: 64,
		ForceAttemptHTTP2:   true,
	}
	return &Client{transport: transport, requestTimeout: cfg.RequestTimeout}
}

func (c *Client) Get(ctx context.Context, url string, hdr headers.List) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, hdr, nil)
}

func (c *Client) Post(ctx context.Context, url string, hdr headers.List, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPost, url, hdr, body)
}

func (c *Client) do(ctx context.Context, method, url string, hdr headers.List, body []byte) (*Response, error) {
	if c == nil || c.transport == nil {
		return nil, &Error{URL: url, Category: CategoryOther, Err: errors.New("client not initialized")}
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	outbound, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &Error{URL: url, Category: CategoryOther, Err: err}
	}
	hdr.WriteTo(outbound.Header)

	resp, err := c.transport.RoundTrip(outbound)
	if err != nil {
		return nil, &Error{URL: url, Category: classify(err), Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: url, Category: classify(err), Err: err}
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   payload,
	}, nil
}

// CloseIdleConnections releases pooled connections, used during shutdown.
func (c *Client) CloseIdleConnections() {
	if c == nil || c.transport == nil {
		return
	}
	c.transport.CloseIdleConnections()
}

func classify(err error) string {
	if isTimeoutError(err) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if isDialError(err) {
		return CategoryConnectFailed
	}
	return CategoryOther
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
