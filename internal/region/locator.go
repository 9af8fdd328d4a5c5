package region

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Locator maps a point to the key of the region containing it.
type Locator interface {
	Locate(lon, lat float64) (string, bool)
}

// Lookup is the full point query surface of an Index.
type Lookup interface {
	Locator
	ContainsPoint(key string, lon, lat float64) bool
}

// CacheObserver is notified of cache hits and misses.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// CachedLocator memoises point queries against an immutable Lookup. Points
// are keyed by the coordinate rounded to six decimals. Negative answers are
// cached too; a reload builds a fresh CachedLocator.
//
// Locate serves region assignment at load. ContainsPoint serves the
// region-scoped detail filter, which re-tests the same unassigned craters on
// every panel refresh.
type CachedLocator struct {
	inner    Lookup
	located  *lru.Cache[string, located]
	contains *lru.Cache[string, bool]
	observer CacheObserver
}

type located struct {
	key   string
	found bool
}

// NewCachedLocator wraps inner with two LRU caches of maxEntries each.
// observer may be nil.
func NewCachedLocator(inner Lookup, maxEntries int, observer CacheObserver) *CachedLocator {
	return &CachedLocator{
		inner:    inner,
		located:  newCache[located](maxEntries),
		contains: newCache[bool](maxEntries),
		observer: observer,
	}
}

func newCache[V any](size int) *lru.Cache[string, V] {
	c, err := lru.New[string, V](max(size, 1))
	if err != nil {
		panic(err) // only returned for a non-positive size
	}
	return c
}

func pointKey(lon, lat float64) string {
	return fmt.Sprintf("%.6f,%.6f", lon, lat)
}

func (c *CachedLocator) Locate(lon, lat float64) (string, bool) {
	k := pointKey(lon, lat)
	if v, ok := c.located.Get(k); ok {
		c.hit()
		return v.key, v.found
	}
	c.miss()
	key, found := c.inner.Locate(lon, lat)
	c.located.Add(k, located{key: key, found: found})
	return key, found
}

// ContainsPoint implements filter.Membership.
func (c *CachedLocator) ContainsPoint(key string, lon, lat float64) bool {
	k := key + "@" + pointKey(lon, lat)
	if v, ok := c.contains.Get(k); ok {
		c.hit()
		return v
	}
	c.miss()
	v := c.inner.ContainsPoint(key, lon, lat)
	c.contains.Add(k, v)
	return v
}

// Len returns the number of cached answers.
func (c *CachedLocator) Len() int { return c.located.Len() + c.contains.Len() }

func (c *CachedLocator) hit() {
	if c.observer != nil {
		c.observer.CacheHit()
	}
}

func (c *CachedLocator) miss() {
	if c.observer != nil {
		c.observer.CacheMiss()
	}
}
