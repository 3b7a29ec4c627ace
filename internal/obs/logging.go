package obs

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type AccessLogEntry struct {
	Timestamp       string `json:"ts"`
	RequestID       string `json:"request_id"`
	Method          string `json:"method"`
	Path            string `json:"path"`
	ResourceID      string `json:"resource_id"`
	PolicyKind      string `json:"policy_kind"`
	Status          int    `json:"status"`
	DurationMS      int64  `json:"duration_ms"`
	BytesOut        int64  `json:"bytes_out"`
	CacheStatus     string `json:"cache_status"`
	ErrorCategory   string `json:"error_category"`
	UpstreamURL     string `json:"upstream_url,omitempty"`
	SnapshotVersion string `json:"snapshot_version"`
	UserAgent       string `json:"user_agent,omitempty"`
	RemoteAddr      string `json:"remote_addr,omitempty"`
}

func LogAccess(ctx RequestContext) {
	entry := AccessLogEntry{
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
		RequestID:       defaultString(ctx.RequestID, "none"),
		Method:          ctx.Method,
		Path:            ctx.Path,
		ResourceID:      defaultString(ctx.ResourceID, "none"),
		PolicyKind:      defaultString(ctx.PolicyKind, "none"),
		Status:          ctx.Status,
		DurationMS:      ctx.Duration.Milliseconds(),
		BytesOut:        ctx.BytesOut,
		CacheStatus:     defaultString(ctx.CacheStatus, "bypass"),
		ErrorCategory:   defaultString(ctx.ErrorCategory, "none"),
		UpstreamURL:     ctx.UpstreamURL,
		SnapshotVersion: defaultString(ctx.SnapshotVersion, "none"),
		UserAgent:       ctx.UserAgent,
		RemoteAddr:      ctx.RemoteAddr,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stdout, "log_marshal_error request_id=%s error=%v\n", entry.RequestID, err)
		return
	}
	_, _ = os.Stdout.Write(append(data, '\n'))
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
