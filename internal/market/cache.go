package market

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"market-advisor/internal/logger"
)

// Cache is a file-backed JSON response cache keyed by request. A nil *Cache
// or a zero TTL disables caching.
type Cache struct {
	dir string
	ttl time.Duration
	mu  sync.RWMutex
}

type cacheEntry struct {
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
	StoredAt time.Time       `json:"stored_at"`
}

func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" || ttl <= 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%x.json", sha1.Sum([]byte(key))))
}

// Get returns the cached payload for key when present and fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var e cacheEntry
	if err := json.Unmarshal(b, &e); err != nil || e.Key != key {
		return nil, false
	}
	if time.Since(e.StoredAt) > c.ttl {
		return nil, false
	}
	return e.Data, true
}

func (c *Cache) Set(key string, data []byte) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := json.Marshal(cacheEntry{Key: key, Data: data, StoredAt: time.Now()})
	if err != nil {
		return err
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path(key))
}

// Prune deletes entries older than the TTL.
func (c *Cache) Prune() (int, error) {
	if c == nil {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > c.ttl {
			if os.Remove(filepath.Join(c.dir, e.Name())) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// cached decodes key from c, or runs fetch and stores its result. Cache
// write failures are logged, never returned.
func cached[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	if b, ok := c.Get(key); ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			logger.Debug(ctx, "Market cache hit", "key", key)
			return v, nil
		}
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	if c != nil {
		b, err := json.Marshal(v)
		if err == nil {
			err = c.Set(key, b)
		}
		if err != nil {
			logger.Warn(ctx, "Failed to write market cache", "key", key, "error", err)
		}
	}
	return v, nil
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, "|")
}
