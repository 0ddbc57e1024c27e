package engine

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/kbsearch-mcp/pkg/types"
)

// cacheEntry holds cached search results with an expiration time
type cacheEntry struct {
	results   []types.SearchResult
	expiresAt time.Time
}

// queryCache is an in-memory LRU of search responses keyed by query and
// limit. Runtime-only; nothing is ever persisted.
type queryCache struct {
	mu    sync.Mutex
	cache *lru.Cache[[32]byte, *cacheEntry]
	ttl   time.Duration
}

func newQueryCache(size int, ttl time.Duration) *queryCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cache, err := lru.New[[32]byte, *cacheEntry](size)
	if err != nil {
		// Only reachable with a non-positive size
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}
	return &queryCache{cache: cache, ttl: ttl}
}

// key computes a stable hash for a (query, limit) pair
func (c *queryCache) key(query string, limit int) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s|%d", query, limit)))
}

// get returns a copy of the cached results for the query, if fresh
func (c *queryCache) get(query string, limit int) ([]types.SearchResult, bool) {
	k := c.key(query, limit)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.cache.Get(k)
	if !found {
		return nil, false
	}
	if now.After(entry.expiresAt) {
		c.cache.Remove(k)
		return nil, false
	}

	// Copy so callers cannot mutate the cached slice
	results := make([]types.SearchResult, len(entry.results))
	copy(results, entry.results)
	return results, true
}

// put stores a copy of the results under the query key
func (c *queryCache) put(query string, limit int, results []types.SearchResult) {
	stored := make([]types.SearchResult, len(results))
	copy(stored, results)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(c.key(query, limit), &cacheEntry{
		results:   stored,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// purge empties the cache
func (c *queryCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}
