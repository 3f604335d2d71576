package news

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"market-advisor/internal/interfaces"
	"market-advisor/internal/logger"
	"market-advisor/internal/types"
)

// Config bounds what the service returns.
type Config struct {
	Enabled     bool
	MaxArticles int
	Lookback    time.Duration
	CacheTTL    time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxArticles: 20,
		Lookback:    30 * 24 * time.Hour,
		CacheTTL:    time.Hour,
	}
}

// Query identifies what to search for. Name is preferred as search text when
// present since headlines rarely carry ticker suffixes.
type Query struct {
	Symbol string
	Name   string
}

func (q Query) text() string {
	if q.Name != "" {
		return q.Name
	}
	return strings.TrimSuffix(strings.TrimSuffix(q.Symbol, ".NS"), ".BO")
}

// Service gathers headlines from its sources, newest first, de-duplicated
// and bounded to the lookback window.
type Service struct {
	primary  []interfaces.NewsSource
	fallback interfaces.NewsSource
	cache    *newsCache
	cfg      Config
	now      func() time.Time
}

// NewService queries primary sources in order; fallback is used only when
// they return nothing. fallback may be nil.
func NewService(cfg Config, fallback interfaces.NewsSource, primary ...interfaces.NewsSource) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		cache:    newNewsCache(cfg.CacheTTL),
		cfg:      cfg,
		now:      time.Now,
	}
}

// ErrAllSourcesFailed is returned when no source answered. Callers treat it
// like an empty result.
var ErrAllSourcesFailed = errors.New("all news sources failed")

// Headlines returns recent news for q, from cache when fresh. An empty slice
// with a nil error is a normal answer.
func (s *Service) Headlines(ctx context.Context, q Query) ([]types.NewsItem, error) {
	if !s.cfg.Enabled {
		return nil, nil
	}
	key := q.Symbol
	if items, ok := s.cache.get(key); ok {
		logger.Debug(ctx, "Using cached news", "symbol", q.Symbol, "items", len(items))
		return items, nil
	}

	items, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	s.cache.set(key, items)
	return items, nil
}

// Refresh bypasses the cache and stores what it fetched, so the next
// Headlines call for q sees fresh items.
func (s *Service) Refresh(ctx context.Context, q Query) ([]types.NewsItem, error) {
	if !s.cfg.Enabled {
		return nil, nil
	}
	items, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	s.cache.set(q.Symbol, items)
	return items, nil
}

func (s *Service) ClearCache() {
	s.cache.clear()
}

func (s *Service) fetch(ctx context.Context, q Query) ([]types.NewsItem, error) {
	text := q.text()
	logger.Info(ctx, "Fetching news", "symbol", q.Symbol, "query", text)

	var (
		raw      []types.NewsItem
		answered int
		errs     []error
	)
	for _, src := range s.primary {
		items, err := src.Fetch(ctx, text, s.cfg.MaxArticles)
		if err != nil {
			logger.Warn(ctx, "News source failed", "source", src.Name(), "symbol", q.Symbol, "error", err)
			errs = append(errs, err)
			continue
		}
		answered++
		raw = append(raw, items...)
	}

	if len(raw) == 0 && s.fallback != nil {
		logger.Info(ctx, "No articles from primary sources, trying fallback", "symbol", q.Symbol, "source", s.fallback.Name())
		items, err := s.fallback.Fetch(ctx, text, s.cfg.MaxArticles)
		if err != nil {
			errs = append(errs, err)
		} else {
			answered++
			raw = items
		}
	}

	if answered == 0 && len(errs) > 0 {
		return nil, errors.Join(append([]error{ErrAllSourcesFailed}, errs...)...)
	}

	items := Normalize(raw, s.now(), s.cfg.Lookback, s.cfg.MaxArticles)
	logger.Info(ctx, "News fetched", "symbol", q.Symbol, "raw", len(raw), "kept", len(items))
	return items, nil
}

// Normalize drops items outside the lookback window and repeated headlines,
// then orders newest first (undated last) and keeps at most limit.
func Normalize(items []types.NewsItem, now time.Time, lookback time.Duration, limit int) []types.NewsItem {
	cutoff := now.Add(-lookback)
	seen := make(map[string]bool, len(items))
	out := make([]types.NewsItem, 0, len(items))
	for _, it := range items {
		if !it.PublishedAt.IsZero() && lookback > 0 && it.PublishedAt.Before(cutoff) {
			continue
		}
		key := headlineKey(it.Headline)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].PublishedAt, out[j].PublishedAt
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// headlineKey folds case and punctuation so syndicated copies collide.
func headlineKey(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// newsCache holds per-symbol results for ttl. Expired entries are swept on
// write.
type newsCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
	ttl  time.Duration
}

type cacheEntry struct {
	items     []types.NewsItem
	timestamp time.Time
}

func newNewsCache(ttl time.Duration) *newsCache {
	return &newsCache{data: make(map[string]cacheEntry), ttl: ttl}
}

func (c *newsCache) get(key string) ([]types.NewsItem, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}
	return entry.items, true
}

func (c *newsCache) set(key string, items []types.NewsItem) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.data {
		if now.Sub(e.timestamp) > c.ttl {
			delete(c.data, k)
		}
	}
	c.data[key] = cacheEntry{items: items, timestamp: now}
}

func (c *newsCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]cacheEntry)
}
