package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dshills/kbsearch-mcp/internal/ann"
	"github.com/dshills/kbsearch-mcp/internal/embedder"
	"github.com/dshills/kbsearch-mcp/internal/f16"
	"github.com/dshills/kbsearch-mcp/internal/rank"
	"github.com/dshills/kbsearch-mcp/internal/rerank"
	"github.com/dshills/kbsearch-mcp/internal/store"
	"github.com/dshills/kbsearch-mcp/pkg/types"
)

const (
	// DefaultSearchLimit is used when Search is called with limit <= 0
	DefaultSearchLimit = 3

	// Query cache defaults
	defaultCacheSize = 1000
	defaultCacheTTL  = 1 * time.Hour
)

// Engine orchestrates the hybrid search pipeline: dense-vector scoring,
// lexical FTS matching, and 1-edit typo scanning, fused by the reranker.
//
// Lifecycle runs constructed -> initialized -> disposed. Initialize and
// Dispose are idempotent; disposed is terminal. All post-init state
// (embeddings, norms, question map, ANN index) is read-only, so concurrent
// Search calls need no locking beyond the lifecycle guard.
type Engine struct {
	cfg      types.Config
	store    store.EntryStore
	embedder embedder.Embedder
	reranker rerank.Reranker

	blob       []byte
	embeddings [][]float32
	norms      []float64
	questions  map[int64]string
	index      ann.Index

	cache *queryCache

	mu          sync.RWMutex
	initialized bool
	disposed    bool
}

// Option configures an Engine at construction
type Option func(*Engine)

// WithReranker replaces the default heuristic reranker
func WithReranker(r rerank.Reranker) Option {
	return func(e *Engine) { e.reranker = r }
}

// WithQueryCache sizes the query-result cache; size <= 0 disables it
func WithQueryCache(size int, ttl time.Duration) Option {
	return func(e *Engine) {
		if size <= 0 {
			e.cache = nil
			return
		}
		e.cache = newQueryCache(size, ttl)
	}
}

// NewEngine creates a search engine over the given store and embedding
// blob. The blob stays undecoded until Initialize.
func NewEngine(cfg types.Config, st store.EntryStore, emb embedder.Embedder, blob []byte, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg.Normalize(),
		store:    st,
		embedder: emb,
		reranker: rerank.NewHeuristic(),
		blob:     blob,
		cache:    newQueryCache(defaultCacheSize, defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsInitialized reports whether the engine is ready to search
func (e *Engine) IsInitialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initialized && !e.disposed
}

// EntryCount returns the number of entries in the corpus. Available
// before Initialize via the blob header.
func (e *Engine) EntryCount() (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.initialized {
		return len(e.embeddings), nil
	}
	return f16.PeekCount(e.blob)
}

// Initialize decodes the embedding blob, computes norms, builds the ANN
// index when the corpus is large enough, and materializes the question
// map. Idempotent; fails after Dispose.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return types.ErrDisposed
	}
	if e.initialized {
		return nil
	}

	vectors, err := f16.Decode(e.blob)
	if err != nil {
		return fmt.Errorf("decoding embeddings: %w", err)
	}
	for i, v := range vectors {
		if len(v) != e.cfg.EmbeddingDim {
			return fmt.Errorf("%w: embedding %d has dimension %d, want %d",
				types.ErrSchemaMismatch, i, len(v), e.cfg.EmbeddingDim)
		}
	}

	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		norms[i] = l2norm(v)
	}

	var index ann.Index
	if len(vectors) >= e.cfg.HNSWThreshold {
		hnsw := ann.NewHNSW(e.cfg.EmbeddingDim, e.cfg.HNSWM, e.cfg.HNSWEf)
		for i, v := range vectors {
			if err := hnsw.Add(int64(i+1), v); err != nil {
				return fmt.Errorf("%w: %v", types.ErrAnnIndex, err)
			}
		}
		if err := hnsw.Build(); err != nil {
			return fmt.Errorf("%w: %v", types.ErrAnnIndex, err)
		}
		index = hnsw
	}

	questions, err := e.store.LoadQuestions(ctx)
	if err != nil {
		return fmt.Errorf("%w: loading questions: %v", types.ErrStore, err)
	}
	for id := range questions {
		if id < 1 || id > int64(len(vectors)) {
			return fmt.Errorf("%w: question id %d outside [1, %d]",
				types.ErrSchemaMismatch, id, len(vectors))
		}
	}

	e.embeddings = vectors
	e.norms = norms
	e.index = index
	e.questions = questions
	e.initialized = true
	return nil
}

// Dispose releases the store and makes the engine permanently unusable.
// Idempotent; a second call is a no-op.
func (e *Engine) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return nil
	}
	e.disposed = true
	if e.cache != nil {
		e.cache.purge()
	}

	if err := e.store.Close(); err != nil {
		return fmt.Errorf("%w: closing store: %v", types.ErrStore, err)
	}
	return nil
}

// Search runs the full hybrid pipeline and returns at most limit ranked
// results. An empty result list is a valid success.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.disposed {
		return nil, types.ErrDisposed
	}
	if !e.initialized {
		return nil, types.ErrNotInitialized
	}

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if e.cache != nil {
		if results, ok := e.cache.get(query, limit); ok {
			return results, nil
		}
	}

	// Embed the query
	qVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbedder, err)
	}
	if len(qVec) != e.cfg.EmbeddingDim {
		return nil, fmt.Errorf("%w: query embedding has dimension %d, want %d",
			types.ErrSchemaMismatch, len(qVec), e.cfg.EmbeddingDim)
	}
	qNorm := l2norm(qVec)

	// Vector scores: ANN top-k when the index exists, full linear cosine
	// table otherwise
	scores := make(map[int64]float64)
	if e.index != nil {
		neighbors, err := e.index.Search(qVec, e.cfg.HNSWSearchK)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrAnnIndex, err)
		}
		for _, n := range neighbors {
			if n.ID < 1 || n.ID > int64(len(e.embeddings)) {
				return nil, fmt.Errorf("%w: ann id %d outside [1, %d]",
					types.ErrSchemaMismatch, n.ID, len(e.embeddings))
			}
			scores[n.ID] = 1 - n.Distance
		}
	} else {
		for i := range e.embeddings {
			scores[int64(i+1)] = cosine(qVec, qNorm, e.embeddings[i], e.norms[i])
		}
	}

	// Lexical signal with single-word retry; failures degrade to empty
	words := e.embedder.ContentWords(query)
	ftsIDs := e.ftsLookup(ctx, words)
	ftsSet := make(map[int64]struct{}, len(ftsIDs))
	for _, id := range ftsIDs {
		ftsSet[id] = struct{}{}
	}

	// Typo scan over the question map
	keywordIDs := e.typoScan(words, ftsSet)

	// Candidate pool: vector top-K plus all keyword hits
	poolIDs := rank.TopIDsByScore(scores, e.cfg.CandidatePoolSize)
	poolSet := make(map[int64]struct{}, len(poolIDs)+len(keywordIDs))
	for _, id := range poolIDs {
		poolSet[id] = struct{}{}
	}
	var extraIDs []int64
	for id := range keywordIDs {
		if _, ok := poolSet[id]; !ok {
			poolSet[id] = struct{}{}
			extraIDs = append(extraIDs, id)
		}
	}
	if len(poolSet) == 0 {
		return nil, nil
	}
	sort.Slice(extraIDs, func(i, j int) bool { return extraIDs[i] < extraIDs[j] })

	// On the ANN path keyword-only ids may lack a vector score; fill the
	// gap with an exact cosine against the stored embedding
	if e.index != nil {
		for id := range keywordIDs {
			if _, ok := scores[id]; !ok {
				scores[id] = cosine(qVec, qNorm, e.embeddings[id-1], e.norms[id-1])
			}
		}
	}

	candidates, err := e.fetchCandidates(ctx, append(poolIDs, extraIDs...), scores)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	results := e.reranker.Rerank(query, candidates, keywordIDs, limit, rerank.Options{
		QueryEmbedding: qVec,
		FTSIDs:         ftsSet,
		ContentWords:   words,
	})

	// Keyword-overlap safety filter: a result whose question shares no
	// word with the query is a pure-semantic hallucination
	queryTokens := rank.Tokenize(query)
	filtered := make([]types.SearchResult, 0, len(results))
	for _, r := range results {
		if rank.OverlapCount(queryTokens, r.Entry.Question) >= 1 {
			filtered = append(filtered, r)
		}
	}

	if e.cache != nil {
		e.cache.put(query, limit, filtered)
	}
	return filtered, nil
}

// ftsLookup builds the match expression and queries the store. FTS
// failure is recovered to an empty id list: the lexical signal degrades
// but the query still answers. A fruitless multi-word match retries with
// the first word alone.
func (e *Engine) ftsLookup(ctx context.Context, words []string) []int64 {
	if len(words) == 0 {
		return nil
	}

	expr := rank.MatchExpression(words, e.cfg.QuestionColumn)
	ids, err := e.store.FTSMatch(ctx, expr, e.cfg.FTSLimit)
	if err != nil {
		log.Printf("kbsearch: FTS match failed, continuing without lexical signal: %v", err)
		return nil
	}

	if len(ids) == 0 && len(words) > 1 {
		retry := rank.MatchExpression(words[:1], e.cfg.QuestionColumn)
		ids, err = e.store.FTSMatch(ctx, retry, e.cfg.FTSLimit)
		if err != nil {
			log.Printf("kbsearch: FTS retry failed, continuing without lexical signal: %v", err)
			return nil
		}
	}

	return ids
}

// typoScan marks an entry when any content word is a substring of the
// lowercased question or within one edit of one of its tokens. Both
// checks run on lowercased text; a capitalized "Dart" still matches the
// typo "datt". Returns the union of FTS hits and typo hits.
func (e *Engine) typoScan(words []string, ftsSet map[int64]struct{}) map[int64]struct{} {
	keywordIDs := make(map[int64]struct{}, len(ftsSet))
	for id := range ftsSet {
		keywordIDs[id] = struct{}{}
	}
	if len(words) == 0 {
		return keywordIDs
	}

	for id, question := range e.questions {
		if _, already := keywordIDs[id]; already {
			continue
		}

		lower := strings.ToLower(question)
		hit := false
		for _, w := range words {
			if w != "" && strings.Contains(lower, w) {
				hit = true
				break
			}
		}
		if !hit {
		scan:
			for _, tok := range rank.Tokenize(question) {
				for _, w := range words {
					if rank.Within1(w, tok) {
						hit = true
						break scan
					}
				}
			}
		}
		if hit {
			keywordIDs[id] = struct{}{}
		}
	}
	return keywordIDs
}

// fetchCandidates loads entries for the pool ids (in pool order) and
// pairs them with their vector scores and embeddings
func (e *Engine) fetchCandidates(ctx context.Context, ids []int64, scores map[int64]float64) ([]types.Candidate, error) {
	entries, err := e.store.FetchEntries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching entries: %v", types.ErrStore, err)
	}

	// FetchEntries preserves no order; reorder by id
	byID := make(map[int64]types.Entry, len(entries))
	for _, entry := range entries {
		if entry.ID < 1 || entry.ID > int64(len(e.embeddings)) {
			return nil, fmt.Errorf("%w: entry id %d outside [1, %d]",
				types.ErrSchemaMismatch, entry.ID, len(e.embeddings))
		}
		byID[entry.ID] = entry
	}

	candidates := make([]types.Candidate, 0, len(ids))
	for _, id := range ids {
		entry, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: entry %d missing from store", types.ErrSchemaMismatch, id)
		}
		candidates = append(candidates, types.Candidate{
			Entry:       entry,
			VectorScore: scores[id],
			Embedding:   e.embeddings[id-1],
		})
	}
	return candidates, nil
}

// cosine computes cosine similarity with precomputed norms. Returns 0
// when either norm is zero.
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

func l2norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
