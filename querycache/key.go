package querycache

import (
	"net/url"
	"sort"
	"strings"
)

// Key identifies one logical query: a resource type and its parameters.
type Key struct {
	Resource string
	Params   map[string]string
}

// NewKey builds a key; empty parameter values are dropped so that absent and empty filters match.
func NewKey(resource string, params map[string]string) Key {
	clean := make(map[string]string, len(params))
	for k, v := range params {
		if v != "" {
			clean[k] = v
		}
	}
	return Key{Resource: resource, Params: clean}
}

// String is the canonical form used as the cache identity, e.g. "businesses?limit=10&page=1".
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Resource
	}
	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(k.Resource)
	b.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(k.Params[name]))
	}
	return b.String()
}

// Predicate selects cache entries by key.
type Predicate func(Key) bool

// ResourcePredicate matches every key of resource.
func ResourcePredicate(resource string) Predicate {
	return func(k Key) bool {
		return k.Resource == resource
	}
}

// All matches every key.
func All(Key) bool {
	return true
}
