package headers

import (
	"net/http"
	"sort"
	"strings"
)

// Pair is a single header name/value. Response headers travel through the
// pipeline as an ordered sequence so filtering preserves relative order.
type Pair struct {
	Name  string
	Value string
}

type List []Pair

// FromHTTP flattens an http.Header into a List. Names are sorted so the
// result is deterministic; values keep their original order per name.
func FromHTTP(h http.Header) List {
	if len(h) == 0 {
		return nil
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make(List, 0, len(h))
	for _, name := range names {
		for _, value := range h[name] {
			list = append(list, Pair{Name: name, Value: value})
		}
	}
	return list
}

// Lowercase normalizes every header name to lower case.
func (l List) Lowercase() List {
	out := make(List, 0, len(l))
	for _, pair := range l {
		out = append(out, Pair{Name: strings.ToLower(pair.Name), Value: pair.Value})
	}
	return out
}

// Filter drops any pair whose lowercased name is not in the allow-list.
// Order of surviving pairs is preserved. Filtering an already-filtered
// list is a no-op.
func (l List) Filter(allow map[string]struct{}) List {
	out := make(List, 0, len(l))
	for _, pair := range l {
		if _, ok := allow[strings.ToLower(pair.Name)]; ok {
			out = append(out, pair)
		}
	}
	return out
}

// Set replaces every pair matching name (case-insensitive) with a single
// pair, appending when the name is absent.
func (l List) Set(name, value string) List {
	lower := strings.ToLower(name)
	out := make(List, 0, len(l)+1)
	replaced := false
	for _, pair := range l {
		if strings.ToLower(pair.Name) == lower {
			if !replaced {
				out = append(out, Pair{Name: lower, Value: value})
				replaced = true
			}
			continue
		}
		out = append(out, pair)
	}
	if !replaced {
		out = append(out, Pair{Name: lower, Value: value})
	}
	return out
}

// Delete removes every pair matching name (case-insensitive).
func (l List) Delete(name string) List {
	lower := strings.ToLower(name)
	out := make(List, 0, len(l))
	for _, pair := range l {
		if strings.ToLower(pair.Name) == lower {
			continue
		}
		out = append(out, pair)
	}
	return out
}

// Get returns the first value for name (case-insensitive).
func (l List) Get(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, pair := range l {
		if strings.ToLower(pair.Name) == lower {
			return pair.Value, true
		}
	}
	return "", false
}

// Has reports whether name appears in the list (case-insensitive).
func (l List) Has(name string) bool {
	_, ok := l.Get(name)
	return ok
}

// WriteTo adds every pair to an http.Header.
func (l List) WriteTo(h http.Header) {
	for _, pair := range l {
		h.Add(pair.Name, pair.Value)
	}
}

// Clone returns an independent copy.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	return append(List(nil), l...)
}

// FromMap builds a List from a plain map, with sorted names for
// determinism.
func FromMap(m map[string]string) List {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	list := make(List, 0, len(m))
	for _, name := range names {
		list = append(list, Pair{Name: name, Value: m[name]})
	}
	return list
}

// DefaultAllowlist is the response header allow-list applied to both
// protocol paths.
func DefaultAllowlist() map[string]struct{} {
	return map[string]struct{}{
		"content-type":   {},
		"content-length": {},
		"cache-control":  {},
		"last-modified":  {},
		"etag":           {},
	}
}

// Allowlist builds an allow-list set from lowercased names.
func Allowlist(names []string) map[string]struct{} {
	allow := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		allow[name] = struct{}{}
	}
	return allow
}
