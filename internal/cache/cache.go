// Package cache implements the approximate suggestion cache: a TTL + LRU
// key/value store whose lookups fall back to edit-distance matching on the
// trailing words of the key when no exact entry exists.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultMaxSize    = 500
	DefaultTTL        = 10 * time.Minute
	DefaultKeyChars   = 50
	DefaultThreshold  = 0.8
	DefaultFuzzyWords = 5
)

// Config holds the tunables of a Cache.
type Config struct {
	MaxSize      int
	TTL          time.Duration
	KeyChars     int
	FuzzyEnabled bool
	Threshold    float64
	FuzzyWords   int
	// Strict panics on an invariant violation instead of repairing it.
	Strict bool
	// Now is the clock; time.Now when nil.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Entry is one stored suggestion.
type Entry struct {
	Key          string
	Value        string
	ExpiresAt    time.Time
	LastAccessed time.Time
	// seq orders accesses that share a timestamp.
	seq uint64
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Corruptions uint64
	Size        int
	MaxSize     int
	TTL         time.Duration
	LastCleared time.Time
}

// HitRate returns hits/(hits+misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is safe for concurrent use. Every operation holds the mutex for its
// whole duration, so eviction scans never interleave with inserts.
type Cache struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*Entry
	seq     uint64

	hits        uint64
	misses      uint64
	evictions   uint64
	corruptions uint64
	lastCleared time.Time
}

// New constructs a Cache, filling unset fields with package defaults.
// FuzzyEnabled is taken as given; use NewDefault for the stock setup.
func New(cfg Config) *Cache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.KeyChars <= 0 {
		cfg.KeyChars = DefaultKeyChars
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.FuzzyWords <= 0 {
		cfg.FuzzyWords = DefaultFuzzyWords
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{cfg: cfg, entries: make(map[string]*Entry, cfg.MaxSize)}
}

// NewDefault returns a cache with default sizing and fuzzy matching enabled.
func NewDefault() *Cache { return New(Config{FuzzyEnabled: true}) }

// Set stores value under the normalized form of key.
func (c *Cache) Set(key, value string) {
	k := NormalizeKey(key, c.cfg.KeyChars)
	if k == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.cfg.Now()
	c.purgeExpiredLocked(now)
	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.cfg.MaxSize {
		c.evictLRULocked()
	}
	c.seq++
	c.entries[k] = &Entry{
		Key:          k,
		Value:        value,
		ExpiresAt:    now.Add(c.cfg.TTL),
		LastAccessed: now,
		seq:          c.seq,
	}
	c.checkInvariantLocked()
}

// Get returns the value for key, trying an exact match before the fuzzy scan.
func (c *Cache) Get(key string) (string, bool) {
	k := NormalizeKey(key, c.cfg.KeyChars)
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.cfg.Now()
	if e, ok := c.entries[k]; ok {
		if now.Before(e.ExpiresAt) {
			c.touchLocked(e, now)
			c.hits++
			return e.Value, true
		}
		delete(c.entries, k)
	}
	if c.cfg.FuzzyEnabled && k != "" {
		if e := c.bestFuzzyLocked(k, now); e != nil {
			c.touchLocked(e, now)
			c.hits++
			return e.Value, true
		}
	}
	c.misses++
	return "", false
}

// bestFuzzyLocked scans live entries for the highest similarity at or above
// the threshold. O(n) in the number of entries.
func (c *Cache) bestFuzzyLocked(k string, now time.Time) *Entry {
	query := lastWords(k, c.cfg.FuzzyWords)
	var best *Entry
	bestScore := 0.0
	for _, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			continue
		}
		score := Similarity(query, lastWords(e.Key, c.cfg.FuzzyWords))
		if score < c.cfg.Threshold {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && e.seq > best.seq) {
			best, bestScore = e, score
		}
	}
	return best
}

func (c *Cache) touchLocked(e *Entry, now time.Time) {
	c.seq++
	e.LastAccessed = now
	e.seq = c.seq
}

func (c *Cache) purgeExpiredLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, k)
		}
	}
}

// evictLRULocked removes the entry with the oldest LastAccessed.
func (c *Cache) evictLRULocked() {
	var lru *Entry
	for _, e := range c.entries {
		if lru == nil || e.LastAccessed.Before(lru.LastAccessed) ||
			(e.LastAccessed.Equal(lru.LastAccessed) && e.seq < lru.seq) {
			lru = e
		}
	}
	if lru == nil {
		return
	}
	delete(c.entries, lru.Key)
	c.evictions++
	c.cfg.Logger.Debug().Str("key", lru.Key).Msg("cache evict")
}

// checkInvariantLocked enforces len(entries) <= MaxSize.
func (c *Cache) checkInvariantLocked() {
	if len(c.entries) <= c.cfg.MaxSize {
		return
	}
	if c.cfg.Strict {
		panic(fmt.Sprintf("cache: size %d exceeds max %d", len(c.entries), c.cfg.MaxSize))
	}
	c.corruptions++
	c.cfg.Logger.Error().Int("size", len(c.entries)).Int("max", c.cfg.MaxSize).Msg("cache size invariant violated; evicting")
	for len(c.entries) > c.cfg.MaxSize {
		c.evictLRULocked()
	}
}

// Clear empties the store and resets eviction state. Hit/miss counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry, c.cfg.MaxSize)
	c.seq = 0
	c.evictions = 0
	c.lastCleared = c.cfg.Now()
}

// ResetStats zeroes the hit and miss counters.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses = 0, 0
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.cfg.Now()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.ExpiresAt) {
			n++
		}
	}
	return n
}

// Stats returns the counters along with the number of entries that have not
// yet expired. Expired entries still awaiting a purge are not counted.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.cfg.Now()
	size := 0
	for _, e := range c.entries {
		if now.Before(e.ExpiresAt) {
			size++
		}
	}
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Corruptions: c.corruptions,
		Size:        size,
		MaxSize:     c.cfg.MaxSize,
		TTL:         c.cfg.TTL,
		LastCleared: c.lastCleared,
	}
}

// KeyChars exposes the key window so callers can derive matching digests.
func (c *Cache) KeyChars() int { return c.cfg.KeyChars }
