package cache

import (
	"context"
	"sync"
	"time"
)

const DefaultMaxFlights = 10000

// Flight is one in-progress computation. Followers for the same key block
// on done and read the shared result.
type Flight struct {
	done      chan struct{}
	result    Entry
	err       error
	startedAt time.Time
}

type Coalescer struct {
	mu         sync.Mutex
	flights    map[string]*Flight
	maxFlights int
}

func NewCoalescer(maxFlights int) *Coalescer {
	if maxFlights <= 0 {
		maxFlights = DefaultMaxFlights
	}
	return &Coalescer{flights: make(map[string]*Flight), maxFlights: maxFlights}
}

// Start registers a flight for key. It returns the flight, whether the
// caller is the leader, and whether coalescing is possible at all (false
// when the flight table is full).
func (c *Coalescer) Start(key string) (*Flight, bool, bool) {
	if c == nil || key == "" {
		return nil, false, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.flights[key]; ok {
		return existing, false, true
	}
	if c.maxFlights > 0 && len(c.flights) >= c.maxFlights {
		return nil, false, false
	}
	flight := &Flight{done: make(chan struct{}), startedAt: time.Now()}
	c.flights[key] = flight
	return flight, true, true
}

// Finish publishes the result to all waiters and retires the flight.
func (c *Coalescer) Finish(key string, flight *Flight, entry Entry, err error) {
	if c == nil || flight == nil {
		return
	}
	c.mu.Lock()
	if current, exists := c.flights[key]; exists && current == flight {
		delete(c.flights, key)
	}
	c.mu.Unlock()
	flight.result = entry
	flight.err = err
	close(flight.done)
}

// Wait blocks until the flight completes or ctx is canceled. A canceled
// waiter abandons only its own wait; the leader keeps computing for the
// remaining waiters.
func (c *Coalescer) Wait(ctx context.Context, flight *Flight) (Entry, error) {
	if flight == nil {
		return Entry{}, context.Canceled
	}
	select {
	case <-flight.done:
		return flight.result, flight.err
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	}
}

func (c *Coalescer) InflightCount() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.flights)
}
