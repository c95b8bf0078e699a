// Package store holds the in-memory change set of registered items.
//
// The change set is the index managers read from for retrieval and MD5
// change detection. It is keyed by (domain, id); the manager owning a store
// is its only writer.
package store

import (
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

// Identified is the minimum an item must expose to be stored.
type Identified interface {
	ID() string
}

// Store is the change-set contract managers depend on.
type Store[T Identified] interface {
	Add(domain string, item T)
	Get(domain, id string) (T, bool)
	GetAsList(domain string) []T
	Remove(domain, id string)
	Exists(domain, id string) bool
	Domains() []string
	Reset()
}

// keySeparator cannot appear in a domain, so domain prefixes never collide.
const keySeparator = "\x00"

// ChangeSet is a Store backed by go-cache with no expiration.
type ChangeSet[T Identified] struct {
	name  string
	cache *gocache.Cache
}

// NewChangeSet creates an empty change set. name labels the set in logs.
func NewChangeSet[T Identified](name string) *ChangeSet[T] {
	return &ChangeSet[T]{
		name:  name,
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Name returns the label given at construction.
func (c *ChangeSet[T]) Name() string {
	return c.name
}

func key(domain, id string) string {
	return domain + keySeparator + id
}

// Add stores item under (domain, item.ID()), replacing any previous entry.
func (c *ChangeSet[T]) Add(domain string, item T) {
	c.cache.Set(key(domain, item.ID()), item, gocache.NoExpiration)
}

// Get returns the item stored under (domain, id).
func (c *ChangeSet[T]) Get(domain, id string) (T, bool) {
	var zero T

	value, found := c.cache.Get(key(domain, id))
	if !found {
		return zero, false
	}
	item, ok := value.(T)
	if !ok {
		return zero, false
	}
	return item, true
}

// GetAsList returns every item of domain sorted by id.
func (c *ChangeSet[T]) GetAsList(domain string) []T {
	prefix := domain + keySeparator

	keys := make([]string, 0)
	items := c.cache.Items()
	for k := range items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		if item, ok := items[k].Object.(T); ok {
			out = append(out, item)
		}
	}
	return out
}

// Domains returns the distinct domains currently holding items, sorted.
func (c *ChangeSet[T]) Domains() []string {
	seen := make(map[string]struct{})
	for k := range c.cache.Items() {
		if i := strings.Index(k, keySeparator); i >= 0 {
			seen[k[:i]] = struct{}{}
		}
	}
	domains := make([]string, 0, len(seen))
	for d := range seen {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// Remove deletes (domain, id). Removing a missing key is a no-op.
func (c *ChangeSet[T]) Remove(domain, id string) {
	c.cache.Delete(key(domain, id))
}

// Exists reports whether (domain, id) is stored.
func (c *ChangeSet[T]) Exists(domain, id string) bool {
	_, found := c.cache.Get(key(domain, id))
	return found
}

// Len returns the number of stored items across all domains.
func (c *ChangeSet[T]) Len() int {
	return c.cache.ItemCount()
}

// Reset drops every item.
func (c *ChangeSet[T]) Reset() {
	c.cache.Flush()
}
