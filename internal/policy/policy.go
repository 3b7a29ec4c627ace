package policy

import (
	"time"

	"transit_feed_proxy/internal/headers"
)

// Kind selects the protocol path for a resource. The set is closed: the
// dispatcher switches over it exhaustively.
type Kind string

const (
	KindHTTP Kind = "http"
	KindSIRI Kind = "siri"
)

// Resource is the immutable per-identifier policy. Exactly one Resource
// exists per identifier within a configuration snapshot.
type Resource struct {
	ID        string
	Kind      Kind
	TargetURL string

	// RequestHeaders are sent on every upstream call for this resource.
	RequestHeaders headers.List

	// HTTP-only fields.
	TTL               time.Duration
	ResponseOverrides headers.List

	// SIRI-only field: the real requestor reference substituted before
	// forwarding.
	RequestorRef string
}

func (r Resource) IsZero() bool {
	return r.ID == "" && r.TargetURL == ""
}
