// Package cache memoizes synthesized audio by provider, voice and text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/enhasa/enhasa/internal/speech/engine"
)

// DefaultMaxEntries bounds the memory tier when no size is configured.
const DefaultMaxEntries = 256

// Key identifies one synthesis. Two keys are equal only when all three
// fields are equal; no normalization is applied.
type Key struct {
	Provider engine.ProviderID
	Voice    string
	Text     string
}

// Digest returns a stable storage name for the key.
func (k Key) Digest() string {
	h := sha256.New()
	// Length prefixes keep ("a","bc") and ("ab","c") apart.
	fmt.Fprintf(h, "%d:%s|%d:%s|%d:%s", len(k.Provider), k.Provider, len(k.Voice), k.Voice, len(k.Text), k.Text)
	return hex.EncodeToString(h.Sum(nil))
}

// Durable is a persistent tier consulted on memory misses.
type Durable interface {
	Load(ctx context.Context, key Key) (engine.Audio, bool, error)
	Store(ctx context.Context, key Key, audio engine.Audio) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithDurable adds a persistent tier behind the memory tier.
func WithDurable(d Durable) Option {
	return func(c *Cache) { c.durable = d }
}

// Cache is a bounded LRU of synthesized audio, optionally backed by a
// durable tier. It is safe for concurrent use.
type Cache struct {
	mem     *lru.Cache[Key, engine.Audio]
	durable Durable
}

// New creates a cache holding at most maxEntries items in memory.
func New(maxEntries int, opts ...Option) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	mem, err := lru.New[Key, engine.Audio](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c := &Cache{mem: mem}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the audio stored for key. Durable hits are promoted into
// memory; durable errors are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key Key) (engine.Audio, bool) {
	if a, ok := c.mem.Get(key); ok {
		return a, true
	}
	if c.durable == nil {
		return engine.Audio{}, false
	}

	a, ok, err := c.durable.Load(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "cache: durable load failed",
			slog.String("provider", string(key.Provider)),
			slog.String("voice", key.Voice),
			slog.String("error", err.Error()))
		return engine.Audio{}, false
	}
	if !ok {
		return engine.Audio{}, false
	}
	c.mem.Add(key, a)
	return a, true
}

// Put stores audio under key. The last writer wins.
func (c *Cache) Put(ctx context.Context, key Key, a engine.Audio) {
	c.mem.Add(key, a)
	if c.durable == nil {
		return
	}
	if err := c.durable.Store(ctx, key, a); err != nil {
		slog.WarnContext(ctx, "cache: durable store failed",
			slog.String("provider", string(key.Provider)),
			slog.String("voice", key.Voice),
			slog.String("error", err.Error()))
	}
}

// Len returns the number of entries in the memory tier.
func (c *Cache) Len() int {
	return c.mem.Len()
}
