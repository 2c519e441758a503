// Package cache provides caching for rendered frames and compiled queries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/figmap/server/internal/query"
)

// Config contains cache configuration.
type Config struct {
	FrameCacheSizeMB int
	FrameTTL         time.Duration
	QueryCacheSize   int
}

// Manager manages frame and query caches.
type Manager struct {
	frameCache *bigcache.BigCache
	queryCache *lru.Cache[string, *query.Compiled]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.FrameTTL <= 0 {
		cfg.FrameTTL = 10 * time.Minute
	}
	if cfg.QueryCacheSize <= 0 {
		cfg.QueryCacheSize = 256
	}

	frameCacheConfig := bigcache.Config{
		Shards:             256,
		LifeWindow:         cfg.FrameTTL,
		CleanWindow:        cfg.FrameTTL / 2,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       512 * 1024, // frames are larger than map tiles
		HardMaxCacheSize:   cfg.FrameCacheSizeMB,
		Verbose:            false,
	}

	frameCache, err := bigcache.New(context.Background(), frameCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame cache: %w", err)
	}

	queryCache, err := lru.New[string, *query.Compiled](cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	return &Manager{
		frameCache: frameCache,
		queryCache: queryCache,
	}, nil
}

// GetFrame retrieves a rendered frame from cache.
func (m *Manager) GetFrame(key string) ([]byte, bool) {
	data, err := m.frameCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetFrame stores a rendered frame in cache.
func (m *Manager) SetFrame(key string, data []byte) error {
	return m.frameCache.Set(key, data)
}

// Compile returns a cached compiled query or compiles and caches it.
// Failures are not cached.
func (m *Manager) Compile(text string) (*query.Compiled, error) {
	if c, ok := m.queryCache.Get(text); ok {
		return c, nil
	}
	c, err := query.Compile(text)
	if err != nil {
		return nil, err
	}
	m.queryCache.Add(text, c)
	return c, nil
}

// FrameKey generates a cache key for a rendered frame. Sessions in the same
// state share a key.
func FrameKey(state []byte, cellSize int) string {
	h := sha256.Sum256(state)
	return fmt.Sprintf("frame:%d:%s", cellSize, hex.EncodeToString(h[:])[:32])
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"frame_cache_len":  m.frameCache.Len(),
		"frame_cache_cap":  m.frameCache.Capacity(),
		"query_cache_len":  m.queryCache.Len(),
		"frame_cache_hits": m.frameCache.Stats().Hits,
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.frameCache.Close()
}
