package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key prefixes per key family. Every derived-read entry (lists, statistics)
// lives under QueryPrefix so a single prefix sweep invalidates all of them
// after any write; single-item entries live under ItemPrefix and are
// invalidated individually by identifier.
const (
	ItemPrefix  = "books:id:"
	QueryPrefix = "books:q:"

	keySeparator = ":"
)

// ItemKey returns the cache key for a single-item read.
func ItemKey(id string) string {
	return ItemPrefix + id
}

// QueryKey returns a deterministic cache key for a derived read: the
// endpoint identity followed by the normalized request parameters in sorted
// order, so two requests with the same normalized parameters always map to
// the same entry. Names and values are percent-escaped so a separator
// character inside a value can never masquerade as another parameter;
// distinct parameter sets always get distinct keys.
//
// Example: books:q:list:limit=20:page=1:sort=-created_at
func QueryKey(endpoint string, params map[string]string) string {
	parts := []string{endpoint}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, url.QueryEscape(name)+"="+url.QueryEscape(params[name]))
	}

	return QueryPrefix + strings.Join(parts, keySeparator)
}
