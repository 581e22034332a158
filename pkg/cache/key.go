package cache

import "strings"

// DefaultKeyPrefix namespaces the Redis keys of the attribute cache.
const DefaultKeyPrefix = "release-attrs"

// Keys generates the Redis keys of one cache namespace.
//
// Format:
//
//	<prefix>:entries   hash of external id -> aggregate JSON
//	<prefix>:order     list of external ids in insertion order
type Keys struct {
	Prefix string
}

func (k Keys) prefix() string {
	p := strings.Trim(k.Prefix, ":")
	if p == "" {
		return DefaultKeyPrefix
	}
	return p
}

// Entries returns the hash key holding the aggregates.
func (k Keys) Entries() string {
	return k.prefix() + ":entries"
}

// Order returns the list key holding the id order.
func (k Keys) Order() string {
	return k.prefix() + ":order"
}
