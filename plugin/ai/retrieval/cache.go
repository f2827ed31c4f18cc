package retrieval

import (
	"container/list"
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hrygo/cuerecall/internal/observability"
)

// DefaultCacheLimit is the default number of cached vectors.
const DefaultCacheLimit = 1000

// EmbeddingCache maps the fingerprint of preprocessed text and the vector
// space to a vector. Only vectors produced in the requested space are stored,
// so a provider failure is never cached.
// Eviction is first-in-first-out: a hit does not refresh an entry's position.
type EmbeddingCache struct {
	encoder  VectorEncoder
	limit    int
	maxRunes int
	metrics  *observability.Metrics

	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
	order   *list.List // front is the oldest insertion

	hits      uint64
	misses    uint64
	evictions uint64

	flight singleflight.Group
}

type cacheKey struct {
	fingerprint uint32
	space       Space
}

type cacheEntry struct {
	key         cacheKey
	text        string // preprocessed text; detects fingerprint collisions
	vector      []float32
	element     *list.Element
}

// CacheStats is a point-in-time view of cache counters.
type CacheStats struct {
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// NewEmbeddingCache creates a cache in front of encoder.
func NewEmbeddingCache(encoder VectorEncoder, limit, maxRunes int, metrics *observability.Metrics) *EmbeddingCache {
	if limit <= 0 {
		limit = DefaultCacheLimit
	}
	if metrics == nil {
		metrics = observability.NewMetrics(0)
	}
	return &EmbeddingCache{
		encoder:  encoder,
		limit:    limit,
		maxRunes: maxRunes,
		metrics:  metrics,
		entries:  make(map[cacheKey]*cacheEntry),
		order:    list.New(),
	}
}

// PreferredSpace is the space the encoder tries first.
func (c *EmbeddingCache) PreferredSpace() Space {
	if se, ok := c.encoder.(SpaceEncoder); ok {
		return se.PreferredSpace()
	}
	return SpaceLocal
}

// GetOrCompute returns the vector for text in the preferred space, falling
// back to the local space when that fails.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, text string) []float32 {
	if vec, ok := c.GetOrComputeIn(ctx, text, c.PreferredSpace()); ok {
		return vec
	}
	vec, _ := c.GetOrComputeIn(ctx, text, SpaceLocal)
	return vec
}

// GetOrComputeIn returns the vector for text in space, invoking the encoder
// only on a miss. ok is false when the encoder could not produce a vector in
// space; nothing is cached then. Concurrent misses for the same text and
// space share one encoder call.
func (c *EmbeddingCache) GetOrComputeIn(ctx context.Context, text string, space Space) ([]float32, bool) {
	normalized := Preprocess(text, c.maxRunes)
	if normalized == "" {
		return make([]float32, c.encoder.Dimensions()), true
	}
	key := cacheKey{fingerprint: Fingerprint(normalized), space: space}

	if vec, ok := c.lookup(key, normalized, true); ok {
		return vec, true
	}

	v, _, _ := c.flight.Do(string(space)+"\x00"+normalized, func() (any, error) {
		// A flight that finished between our miss and Do may already have stored it.
		if vec, ok := c.lookup(key, normalized, false); ok {
			return vec, nil
		}
		vec, ok := c.encodeIn(ctx, normalized, space)
		if !ok {
			return []float32(nil), nil
		}
		c.insert(key, normalized, vec)
		return vec, nil
	})

	vec := v.([]float32)
	if vec == nil {
		return nil, false
	}
	return slices.Clone(vec), true
}

func (c *EmbeddingCache) encodeIn(ctx context.Context, normalized string, space Space) ([]float32, bool) {
	if se, ok := c.encoder.(SpaceEncoder); ok {
		return se.EncodeIn(ctx, normalized, space)
	}
	if space != SpaceLocal {
		return nil, false
	}
	return c.encoder.Encode(ctx, normalized), true
}

func (c *EmbeddingCache) lookup(key cacheKey, normalized string, count bool) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	hit := ok && e.text == normalized
	if count {
		if hit {
			c.hits++
			c.metrics.RecordCacheHit()
		} else {
			c.misses++
			c.metrics.RecordCacheMiss()
		}
	}
	if !hit {
		return nil, false
	}
	return slices.Clone(e.vector), true
}

// insert stores vec and evicts the oldest entries until the limit holds.
// A fingerprint collision replaces the colliding entry in place.
func (c *EmbeddingCache) insert(key cacheKey, normalized string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.text = normalized
		e.vector = vec
		return
	}

	e := &cacheEntry{key: key, text: normalized, vector: vec}
	e.element = c.order.PushBack(e)
	c.entries[key] = e

	for len(c.entries) > c.limit {
		c.evictOldest()
	}
}

// evictOldest removes the first inserted entry.
// Must be called with lock held.
func (c *EmbeddingCache) evictOldest() {
	oldest := c.order.Front()
	if oldest == nil {
		return
	}
	e := oldest.Value.(*cacheEntry)
	c.order.Remove(oldest)
	delete(c.entries, e.key)
	c.evictions++
	c.metrics.RecordEviction()
}

// Contains reports whether text is cached in any space, without touching counters.
func (c *EmbeddingCache) Contains(text string) bool {
	return c.ContainsIn(text, SpaceLocal) || c.ContainsIn(text, SpaceRemote)
}

// ContainsIn reports whether text is cached in space.
func (c *EmbeddingCache) ContainsIn(text string, space Space) bool {
	normalized := Preprocess(text, c.maxRunes)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{fingerprint: Fingerprint(normalized), space: space}]
	return ok && e.text == normalized
}

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache counters.
func (c *EmbeddingCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Clear removes all entries. Counters are kept.
func (c *EmbeddingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*cacheEntry)
	c.order.Init()
}
