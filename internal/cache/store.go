package cache

import (
	"time"

	"transit_feed_proxy/internal/headers"
)

// MaxCachedBytes is the hard ceiling on a cached payload. Entries whose
// body exceeds it are served to the requester but never stored.
const MaxCachedBytes int64 = 20 * 1024 * 1024

type Entry struct {
	Status    int
	Header    headers.List
	Body      []byte
	ExpiresAt time.Time
	StoredAt  time.Time
}

// Outcome is the result of one compute attempt. Commit asks the store to
// persist the entry for a TTL; Ignore returns the entry to all waiters
// without persisting anything.
type Outcome struct {
	Entry Entry
	Store bool
	TTL   time.Duration
}

func Commit(entry Entry, ttl time.Duration) Outcome {
	return Outcome{Entry: entry, Store: true, TTL: ttl}
}

func Ignore(entry Entry) Outcome {
	return Outcome{Entry: entry}
}

// ComputeFunc produces the value for a missing key. It runs at most once
// concurrently per key.
type ComputeFunc func() (Outcome, error)

type Store interface {
	Get(key string) (Entry, bool)
	Set(key string, entry Entry) error
	Delete(key string)
}

// Status values reported for logging and metrics.
const (
	StatusHit       = "hit"
	StatusMiss      = "miss"
	StatusCoalesced = "coalesced"
	StatusBypass    = "bypass"
)
