package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/karatekonnect/pkg/log"
	"github.com/cuemby/karatekonnect/pkg/metrics"
	"github.com/cuemby/karatekonnect/pkg/storage"
	"github.com/cuemby/karatekonnect/pkg/types"
	"github.com/rs/zerolog"
)

// Key is the store key holding the cache entry
const Key = "karatekonnect_cache"

// DefaultTTL is how long a snapshot is served without refresh
const DefaultTTL = 5 * time.Minute

// Read outcomes other than a hit. Callers treat all of them as a miss.
var (
	ErrMiss    = errors.New("cache miss")
	ErrExpired = errors.New("cache entry expired")
	ErrCorrupt = errors.New("cache entry corrupt")
	ErrWrite   = errors.New("cache write failed")
)

// ExpiredError is returned by Read for an entry older than the TTL. The entry
// has already been removed from the store; Entry is the last copy, kept so a
// caller whose refresh fails can still fall back to it.
type ExpiredError struct {
	Entry types.CacheEntry
	Age   time.Duration
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("cache entry expired %s ago", e.Age.Round(time.Second))
}

func (e *ExpiredError) Is(target error) bool {
	return target == ErrExpired
}

// Cache stores a timestamped snapshot of the whole document
type Cache struct {
	kv     storage.Store
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Cache
type Option func(*Cache)

// WithTTL sets the freshness window
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache over kv
func New(kv storage.Store, opts ...Option) *Cache {
	c := &Cache{
		kv:     kv,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: log.WithComponent("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Read returns the cached document if it is at most TTL old. An expired
// entry is removed and handed back inside an *ExpiredError. A corrupt entry
// is removed and reported as ErrCorrupt, never as a document.
func (c *Cache) Read() (*types.Document, error) {
	entry, err := c.load()
	if err != nil {
		c.record(err)
		if errors.Is(err, ErrCorrupt) {
			c.remove("corrupt")
		}
		return nil, err
	}

	age := c.now().Sub(entry.WrittenAt())
	if age > c.ttl {
		c.remove("expired")
		metrics.CacheReadsTotal.WithLabelValues(metrics.CacheExpired).Inc()
		c.logger.Debug().Dur("age", age).Msg("Cache entry expired")
		return nil, &ExpiredError{Entry: *entry, Age: age}
	}

	metrics.CacheReadsTotal.WithLabelValues(metrics.CacheHit).Inc()
	return &entry.Content, nil
}

// ReadIgnoringExpiry returns the last stored document regardless of age.
// Used only as a fallback when the remote store is unreachable.
func (c *Cache) ReadIgnoringExpiry() (*types.Document, error) {
	entry, err := c.load()
	if err != nil {
		return nil, err
	}
	return &entry.Content, nil
}

// Write overwrites the entry with doc stamped at the current time
func (c *Cache) Write(doc *types.Document) error {
	data, err := json.Marshal(types.NewCacheEntry(*doc, c.now()))
	if err != nil {
		metrics.CacheWriteFailuresTotal.Inc()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := c.kv.Set(Key, string(data)); err != nil {
		metrics.CacheWriteFailuresTotal.Inc()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Restore puts back an entry with its original timestamp. Used after a
// stale fallback so the snapshot survives a continuing outage without
// looking fresh.
func (c *Cache) Restore(entry types.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := c.kv.Set(Key, string(data)); err != nil {
		metrics.CacheWriteFailuresTotal.Inc()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Clear removes the entry
func (c *Cache) Clear() error {
	return c.kv.Remove(Key)
}

// Age returns how long ago the stored entry was written
func (c *Cache) Age() (time.Duration, error) {
	entry, err := c.load()
	if err != nil {
		return 0, err
	}
	return c.now().Sub(entry.WrittenAt()), nil
}

func (c *Cache) load() (*types.CacheEntry, error) {
	raw, err := c.kv.Get(Key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		// An unreadable medium is handled like unreadable content
		c.logger.Error().Err(err).Msg("Cache read error")
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	var entry types.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.Warn().Err(err).Msg("Discarding corrupt cache entry")
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &entry, nil
}

func (c *Cache) remove(reason string) {
	if err := c.kv.Remove(Key); err != nil {
		c.logger.Warn().Err(err).Str("reason", reason).Msg("Failed to remove cache entry")
	}
}

func (c *Cache) record(err error) {
	switch {
	case errors.Is(err, ErrMiss):
		metrics.CacheReadsTotal.WithLabelValues(metrics.CacheMiss).Inc()
	case errors.Is(err, ErrCorrupt):
		metrics.CacheReadsTotal.WithLabelValues(metrics.CacheCorrupt).Inc()
	}
}
