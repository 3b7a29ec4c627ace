package runtime

import (
	"sync/atomic"
	"time"

	"transit_feed_proxy/internal/policy"
)

// Resolver maps a resource identifier to its policy. The dispatcher holds
// only this interface; where policies come from and when they refresh is
// the embedding process's concern.
type Resolver interface {
	Resolve(id string) (policy.Resource, bool)
}

// Snapshot is one immutable view of the configured resources.
type Snapshot struct {
	Resources map[string]policy.Resource
	Version   string
	CreatedAt time.Time
	Source    string
}

func (s *Snapshot) Resolve(id string) (policy.Resource, bool) {
	if s == nil {
		return policy.Resource{}, false
	}
	resource, ok := s.Resources[id]
	return resource, ok
}

// Store holds the current snapshot behind an atomic pointer so resolution
// on the hot path is lock-free and a refreshed snapshot can be swapped in
// whole.
type Store struct {
	v atomic.Value
}

func NewStore(initial *Snapshot) *Store {
	store := &Store{}
	store.v.Store(initial)
	return store
}

func (s *Store) Get() *Snapshot {
	if s == nil {
		return nil
	}
	value := s.v.Load()
	if value == nil {
		return nil
	}
	return value.(*Snapshot)
}

func (s *Store) Swap(next *Snapshot) {
	if s == nil {
		return
	}
	s.v.Store(next)
}

func (s *Store) Resolve(id string) (policy.Resource, bool) {
	return s.Get().Resolve(id)
}
