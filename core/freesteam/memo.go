package freesteam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/cogen/core/factory"
	"github.com/kilianp07/cogen/core/logger"
)

// Cache stores estimates keyed by dispatch interval.
type Cache interface {
	Get(ctx context.Context, key string) (Estimate, bool, error)
	Set(ctx context.Context, key string, e Estimate, ttl time.Duration) error
}

var cacheRegistry = factory.NewRegistry[Cache]()

func init() {
	_ = RegisterCache("memory", func(map[string]any) (Cache, error) {
		return NewMemoryCache(), nil
	})
}

// RegisterCache adds a cache factory identified by name.
func RegisterCache(name string, f factory.Factory[Cache]) error {
	return cacheRegistry.Register(name, f)
}

// CacheTypes lists the registered cache types.
func CacheTypes() []string { return cacheRegistry.Types() }

// NewCache creates a Cache from configuration. An empty type selects memory.
func NewCache(cfg factory.ModuleConfig) (Cache, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return cacheRegistry.Create(cfg)
}

// Memo memoizes a Provider per dispatch interval so that concurrent requests
// in the same interval read the source once. Fallback estimates are not
// cached, so a recovered source is picked up on the next call.
type Memo struct {
	next     Provider
	cache    Cache
	interval time.Duration
	now      func() time.Time
	log      logger.Logger

	mu       sync.Mutex
	inflight map[string]*call
}

type call struct {
	done chan struct{}
	est  Estimate
	err  error
}

// NewMemo wraps next. interval must be positive.
func NewMemo(next Provider, cache Cache, interval time.Duration, log logger.Logger) *Memo {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Memo{next: next, cache: cache, interval: interval, now: time.Now, log: log, inflight: make(map[string]*call)}
}

// Key returns the cache key of a lookup. Latest lookups share the key of the
// interval containing t; explicit lookups are keyed by their exact time.
func (m *Memo) Key(t time.Time, explicit bool) string {
	if explicit {
		return fmt.Sprintf("freesteam:at:%d", t.UnixNano())
	}
	return fmt.Sprintf("freesteam:latest:%d", t.Truncate(m.interval).Unix())
}

// Estimate implements Provider.
func (m *Memo) Estimate(ctx context.Context, at *time.Time) (Estimate, error) {
	t := m.now()
	if at != nil {
		t = *at
	}
	key := m.Key(t, at != nil)
	if est, ok, err := m.cache.Get(ctx, key); err == nil && ok {
		return est, nil
	} else if err != nil && m.log != nil {
		m.log.Warnf("free steam cache get %s: %v", key, err)
	}

	m.mu.Lock()
	if c, ok := m.inflight[key]; ok {
		m.mu.Unlock()
		select {
		case <-c.done:
			return c.est, c.err
		case <-ctx.Done():
			return Estimate{}, ctx.Err()
		}
	}
	c := &call{done: make(chan struct{})}
	m.inflight[key] = c
	m.mu.Unlock()

	go m.lead(ctx, key, at, c)
	select {
	case <-c.done:
		return c.est, c.err
	case <-ctx.Done():
		return Estimate{}, ctx.Err()
	}
}

// lead runs the shared lookup of key. It is detached from the caller that
// started it, so one canceled request does not fail the others waiting on
// the same interval; the lookup is bounded by the interval instead.
func (m *Memo) lead(ctx context.Context, key string, at *time.Time, c *call) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.interval)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			c.est, c.err = Estimate{}, fmt.Errorf("free steam provider panic: %v", r)
		}
		m.mu.Lock()
		delete(m.inflight, key)
		m.mu.Unlock()
		close(c.done)
	}()

	c.est, c.err = m.next.Estimate(ctx, at)
	if c.err == nil && !c.est.Fallback {
		if err := m.cache.Set(ctx, key, c.est, m.interval); err != nil && m.log != nil {
			m.log.Warnf("free steam cache set %s: %v", key, err)
		}
	}
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	est     Estimate
	expires time.Time
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Estimate, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Estimate{}, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return Estimate{}, false, nil
	}
	return e.est, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, e Estimate, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.entries {
		if !c.now().Before(v.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryEntry{est: e, expires: c.now().Add(ttl)}
	return nil
}
