package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/kbsearch-mcp/internal/rank"
)

// Common errors
var (
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
	ErrUnsupportedModel  = errors.New("unsupported provider")
)

// Embedder is the embedding capability the engine requires: dense-vector
// embedding of query text and pure, synchronous content-word extraction.
type Embedder interface {
	// Embed generates the dense vector for the given text. The vector
	// length equals Dimension.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ContentWords returns the lowercased, stop-word-stripped tokens of
	// the text. Pure and synchronous.
	ContentWords(text string) []string

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Close releases any resources held by the embedder
	Close() error
}

// Stop words stripped from content words. Question scaffolding ("what",
// "how") is included so that only the load-bearing terms reach the
// lexical and typo signals.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "how": true, "why": true,
	"when": true, "where": true, "which": true, "who": true, "does": true,
}

// ContentWords normalizes text and strips stop words. All providers share
// this implementation; falling back to the full token list when every
// word is a stop word keeps short queries searchable.
func ContentWords(text string) []string {
	tokens := rank.Tokenize(text)
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !stopWords[tok] {
			words = append(words, tok)
		}
	}
	if len(words) == 0 {
		return tokens
	}
	return words
}

// Cache provides in-memory LRU caching of embeddings by content hash
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates a new embedding cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		// Should never happen with a positive size
		cache, _ = lru.New[string, []float32](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached vector. Returning a copy prevents
// caller mutations from reaching the cached value.
func (c *Cache) Get(hash string) ([]float32, bool) {
	vec, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}

	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector in cache with automatic LRU eviction
func (c *Cache) Set(hash string, vec []float32) {
	c.cache.Add(hash, vec)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// ComputeHash computes the SHA-256 content hash used as the cache key
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
