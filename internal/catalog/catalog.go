package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Catalog is the immutable hierarchy of permission items per domain.
// Built once at startup and injected; read paths never mutate it.
type Catalog struct {
	items  map[Domain][]Item
	byKey  map[Domain]map[string]Item
	sorted map[Domain][]string
}

// New validates the supplied items and builds a Catalog. It rejects
// duplicate keys within a domain, parents missing from the same domain,
// and cyclic parent chains.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items:  make(map[Domain][]Item),
		byKey:  make(map[Domain]map[string]Item),
		sorted: make(map[Domain][]string),
	}
	for _, it := range items {
		key := strings.TrimSpace(it.Key)
		if key == "" {
			return nil, fmt.Errorf("catalog: empty key in domain %q", it.Domain)
		}
		if _, ok := ParseDomain(string(it.Domain)); !ok {
			return nil, fmt.Errorf("catalog: unknown domain %q for key %q", it.Domain, key)
		}
		if c.byKey[it.Domain] == nil {
			c.byKey[it.Domain] = make(map[string]Item)
		}
		if _, dup := c.byKey[it.Domain][key]; dup {
			return nil, fmt.Errorf("catalog: duplicate key %q in domain %q", key, it.Domain)
		}
		it.Key = key
		c.byKey[it.Domain][key] = it
		c.items[it.Domain] = append(c.items[it.Domain], it)
	}
	for domain, byKey := range c.byKey {
		for key, it := range byKey {
			if it.Parent == "" {
				continue
			}
			if _, ok := byKey[it.Parent]; !ok {
				return nil, fmt.Errorf("catalog: key %q references missing parent %q in domain %q", key, it.Parent, domain)
			}
		}
		// Walk every parent chain; a chain longer than the domain size means a cycle.
		for key := range byKey {
			steps := 0
			for cur := key; byKey[cur].Parent != ""; cur = byKey[cur].Parent {
				steps++
				if steps > len(byKey) {
					return nil, fmt.Errorf("catalog: cyclic parent chain at key %q in domain %q", key, domain)
				}
			}
		}
	}
	for domain, list := range c.items {
		keys := make([]string, 0, len(list))
		for _, it := range list {
			keys = append(keys, it.Key)
		}
		sort.Strings(keys)
		c.sorted[domain] = keys
	}
	return c, nil
}

// List returns the catalog items of a domain in insertion order.
func (c *Catalog) List(d Domain) []Item {
	items := c.items[d]
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Keys returns every key of a domain, sorted.
func (c *Catalog) Keys(d Domain) []string {
	keys := c.sorted[d]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Has reports whether the key exists in the domain catalog.
func (c *Catalog) Has(d Domain, key string) bool {
	_, ok := c.byKey[d][key]
	return ok
}

// Item returns the catalog entry for a key.
func (c *Catalog) Item(d Domain, key string) (Item, bool) {
	it, ok := c.byKey[d][key]
	return it, ok
}

// Ancestors returns every ancestor key of the given key, nearest first.
func (c *Catalog) Ancestors(d Domain, key string) []string {
	var out []string
	byKey := c.byKey[d]
	for cur := byKey[key].Parent; cur != ""; cur = byKey[cur].Parent {
		out = append(out, cur)
	}
	return out
}

// WithAncestors normalizes a selection for writing: it drops unknown and
// blank keys, dedupes, and adds every ancestor reachable via parent links.
// The result is sorted for stable storage.
func (c *Catalog) WithAncestors(d Domain, keys []string) []string {
	if keys == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" || !c.Has(d, key) {
			continue
		}
		seen[key] = struct{}{}
		for _, anc := range c.Ancestors(d, key) {
			seen[anc] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Dedup trims, dedupes and sorts a selection without ancestor expansion.
// Used for the domains that carry no hierarchy semantics on write.
func Dedup(keys []string) []string {
	if keys == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		seen[key] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether the slice contains the key.
func Contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
