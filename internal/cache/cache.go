package cache

import "context"

// Cache combines the TTL store with per-key single-flight coalescing. It
// is the only shared mutable state in the proxy and is accessed solely
// through FetchOrCompute.
type Cache struct {
	store     *MemoryStore
	coalescer *Coalescer

	// OnOversize is invoked when a Commit outcome is downgraded because
	// the body exceeds the store ceiling.
	OnOversize func(key string, size int64)
}

func New(store *MemoryStore, coalescer *Coalescer) *Cache {
	return &Cache{store: store, coalescer: coalescer}
}

// FetchOrCompute returns the live entry for key, or runs compute to
// produce one. Concurrent callers on the same missing key trigger exactly
// one compute; all of them observe the same result. A Commit outcome is
// stored with its TTL unless the body exceeds MaxCachedBytes, in which
// case the entry is returned but not stored. A compute error is shared
// with the waiters and nothing is stored, so the next request retries.
//
// ctx bounds only this caller's wait; an in-progress compute is never
// aborted on behalf of a departed waiter.
func (c *Cache) FetchOrCompute(ctx context.Context, key string, compute ComputeFunc) (Entry, string, error) {
	if entry, ok := c.store.Get(key); ok {
		return entry, StatusHit, nil
	}

	flight, leader, coalesced := c.coalescer.Start(key)
	if !coalesced {
		// Flight table full: compute without sharing, never store.
		outcome, err := compute()
		if err != nil {
			return Entry{}, StatusBypass, err
		}
		return outcome.Entry, StatusBypass, nil
	}

	if !leader {
		entry, err := c.coalescer.Wait(ctx, flight)
		if err != nil {
			return Entry{}, StatusCoalesced, err
		}
		return entry, StatusCoalesced, nil
	}

	outcome, err := compute()
	if err != nil {
		c.coalescer.Finish(key, flight, Entry{}, err)
		return Entry{}, StatusMiss, err
	}

	entry := outcome.Entry
	if outcome.Store {
		if size := int64(len(entry.Body)); size > MaxCachedBytes {
			if c.OnOversize != nil {
				c.OnOversize(key, size)
			}
		} else {
			now := c.store.Now()
			entry.StoredAt = now
			if outcome.TTL > 0 {
				entry.ExpiresAt = now.Add(outcome.TTL)
			}
			// Store failure is not surfaced; the entry is still returned.
			_ = c.store.Set(key, entry)
		}
	}

	c.coalescer.Finish(key, flight, entry, nil)
	return entry, StatusMiss, nil
}
