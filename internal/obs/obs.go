package obs

import "time"

type RequestContext struct {
	RequestID       string
	Method          string
	Path            string
	ResourceID      string
	PolicyKind      string
	Status          int
	Duration        time.Duration
	BytesOut        int64
	CacheStatus     string
	ErrorCategory   string
	UpstreamURL     string
	SnapshotVersion string
	UserAgent       string
	RemoteAddr      string
}
