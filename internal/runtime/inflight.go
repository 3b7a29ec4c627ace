package runtime

import (
	"context"
	"sync"
)

// InflightTracker counts requests currently being served so shutdown can
// wait for the tail to drain.
type InflightTracker struct {
	mu     sync.Mutex
	count  int64
	zeroCh chan struct{}
}

func NewInflightTracker() *InflightTracker {
	zeroCh := make(chan struct{})
	close(zeroCh)
	return &InflightTracker{zeroCh: zeroCh}
}

func (t *InflightTracker) Inc() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.count++
	if t.count == 1 {
		t.zeroCh = make(chan struct{})
	}
	t.mu.Unlock()
}

func (t *InflightTracker) Dec() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.count--
	if t.count == 0 {
		close(t.zeroCh)
	}
	t.mu.Unlock()
}

// Wait blocks until no requests are inflight or ctx expires.
func (t *InflightTracker) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t.mu.Lock()
	waitCh := t.zeroCh
	t.mu.Unlock()
	select {
	case <-waitCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
