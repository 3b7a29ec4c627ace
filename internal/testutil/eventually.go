package testutil

import (
	"testing"
	"time"
)

// Eventually polls fn until it returns nil or timeout elapses.
func Eventually(t *testing.T, timeout, interval time.Duration, fn func() error) {
	t.Helper()

	var err error
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); time.Sleep(interval) {
		if err = fn(); err == nil {
			return
		}
	}
	t.Fatalf("condition not met within %v: %v", timeout, err)
}
