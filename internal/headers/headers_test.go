package headers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHTTPDeterministic(t *testing.T) {
	h := http.Header{}
	h.Add("Content-Type", "application/json")
	h.Add("ETag", `"abc"`)
	h.Add("X-Custom", "one")
	h.Add("X-Custom", "two")

	list := FromHTTP(h)
	require.Equal(t, List{
		{Name: "Content-Type", Value: "application/json"},
		{Name: "Etag", Value: `"abc"`},
		{Name: "X-Custom", Value: "one"},
		{Name: "X-Custom", Value: "two"},
	}, list)
}

func TestLowercase(t *testing.T) {
	list := List{{Name: "Content-Type", Value: "text/xml"}, {Name: "ETag", Value: "x"}}
	assert.Equal(t, List{{Name: "content-type", Value: "text/xml"}, {Name: "etag", Value: "x"}}, list.Lowercase())
}

func TestFilterDropsUnknownAndPreservesOrder(t *testing.T) {
	allow := DefaultAllowlist()
	list := List{
		{Name: "server", Value: "nginx"},
		{Name: "content-type", Value: "application/octet-stream"},
		{Name: "set-cookie", Value: "secret"},
		{Name: "etag", Value: `"v1"`},
		{Name: "cache-control", Value: "no-store"},
	}

	filtered := list.Filter(allow)
	require.Equal(t, List{
		{Name: "content-type", Value: "application/octet-stream"},
		{Name: "etag", Value: `"v1"`},
		{Name: "cache-control", Value: "no-store"},
	}, filtered)
}

func TestFilterIdempotent(t *testing.T) {
	allow := DefaultAllowlist()
	list := List{
		{Name: "content-type", Value: "text/plain"},
		{Name: "x-internal", Value: "1"},
	}
	once := list.Filter(allow)
	twice := once.Filter(allow)
	assert.Equal(t, once, twice)
}

func TestFilterIsCaseInsensitive(t *testing.T) {
	allow := DefaultAllowlist()
	list := List{{Name: "Content-Type", Value: "text/plain"}}
	assert.Equal(t, list, list.Filter(allow))
}

func TestSetReplacesAllOccurrences(t *testing.T) {
	list := List{
		{Name: "content-disposition", Value: "inline"},
		{Name: "etag", Value: "x"},
		{Name: "Content-Disposition", Value: "attachment"},
	}
	out := list.Set("content-disposition", "attachment; filename=feed.bin")
	require.Equal(t, List{
		{Name: "content-disposition", Value: "attachment; filename=feed.bin"},
		{Name: "etag", Value: "x"},
	}, out)
}

func TestSetAppendsWhenAbsent(t *testing.T) {
	list := List{{Name: "etag", Value: "x"}}
	out := list.Set("content-disposition", "attachment")
	require.Equal(t, List{
		{Name: "etag", Value: "x"},
		{Name: "content-disposition", Value: "attachment"},
	}, out)
}

func TestDelete(t *testing.T) {
	list := List{
		{Name: "content-encoding", Value: "gzip"},
		{Name: "content-type", Value: "text/xml"},
	}
	assert.Equal(t, List{{Name: "content-type", Value: "text/xml"}}, list.Delete("Content-Encoding"))
}

func TestGet(t *testing.T) {
	list := List{{Name: "content-type", Value: "text/xml"}}
	value, ok := list.Get("Content-Type")
	require.True(t, ok)
	assert.Equal(t, "text/xml", value)

	_, ok = list.Get("etag")
	assert.False(t, ok)
}

func TestAllowlistNormalizes(t *testing.T) {
	allow := Allowlist([]string{" Content-Type ", "ETAG", ""})
	_, hasContentType := allow["content-type"]
	_, hasEtag := allow["etag"]
	assert.True(t, hasContentType)
	assert.True(t, hasEtag)
	assert.Len(t, allow, 2)
}

func TestFromMapSorted(t *testing.T) {
	list := FromMap(map[string]string{"b": "2", "a": "1"})
	require.Equal(t, List{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}, list)
}
