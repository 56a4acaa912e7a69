package indicators

import (
	"container/list"
	"sync"
	"time"

	"github.com/dohyunpark/autotrader/internal/domain"
)

// cacheKey identifies one cached Frame: a ticker as of a specific bar.
// Two calls for the same ticker at the same bar timestamp always hit.
type cacheKey struct {
	ticker string
	asOf   int64
}

type cacheEntry struct {
	key       cacheKey
	frame     Frame
	computedAt time.Time
}

// Cache is an LRU cache of computed Frames with a time-to-live, so a tick
// that scores the same universe across ten strategy versions pays the
// talib/gonum cost once per ticker instead of once per (ticker, version).
// Bounded by entry count (maxSize) and staleness (ttl), matching the
// maxsize+ttl_seconds pairing of the indicator cache this is modelled on.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	clock   domain.Clock

	ll    *list.List // front = most recently used
	items map[cacheKey]*list.Element

	hits, misses int64
}

// NewCache builds a Cache bounded to maxSize entries, each valid for ttl.
// A nil clock defaults to domain.SystemClock.
func NewCache(maxSize int, ttl time.Duration, clock domain.Clock) *Cache {
	if maxSize <= 0 {
		maxSize = 500
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		clock:   clock,
		ll:      list.New(),
		items:   make(map[cacheKey]*list.Element),
	}
}

// GetOrCompute returns the cached Frame for series' ticker and last-bar
// timestamp if present and not stale, else computes, caches, and returns a
// fresh one. forceRefresh bypasses the cache read but still populates it.
func (c *Cache) GetOrCompute(series domain.PriceSeries, forceRefresh bool) (Frame, error) {
	last, ok := series.LastBar()
	if !ok {
		return Frame{}, domain.ErrDataInsufficient
	}
	key := cacheKey{ticker: series.Ticker, asOf: last.Timestamp.Unix()}

	c.mu.Lock()
	if !forceRefresh {
		if el, found := c.items[key]; found {
			entry := el.Value.(*cacheEntry)
			if c.clock.Now().Sub(entry.computedAt) <= c.ttl {
				c.hits++
				c.ll.MoveToFront(el)
				frame := entry.frame
				c.mu.Unlock()
				return frame, nil
			}
			// stale: drop it, fall through to recompute
			c.ll.Remove(el)
			delete(c.items, key)
		}
	}
	c.misses++
	c.mu.Unlock()

	frame, err := Compute(series)
	if err != nil {
		return Frame{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry := &cacheEntry{key: key, frame: frame, computedAt: c.clock.Now()}
	el := c.ll.PushFront(entry)
	c.items[key] = el
	for c.ll.Len() > c.maxSize {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
	return frame, nil
}

// Invalidate drops a single ticker's cached frame, regardless of staleness.
func (c *Cache) Invalidate(ticker string, asOf time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{ticker: ticker, asOf: asOf.Unix()}
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.ll.Remove(el)
	delete(c.items, key)
	return true
}

// Clear empties the cache and resets hit/miss counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll = list.New()
	c.items = make(map[cacheKey]*list.Element)
	c.hits, c.misses = 0, 0
}

// Stats reports the cache's current size and lifetime hit-rate, used by the
// status endpoint and the scheduler's backpressure heuristics.
type Stats struct {
	Size    int
	MaxSize int
	Hits    int64
	Misses  int64
}

// HitRate returns Hits / (Hits + Misses), or 0 if nothing has been requested yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the cache's size and hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.ll.Len(), MaxSize: c.maxSize, Hits: c.hits, Misses: c.misses}
}
