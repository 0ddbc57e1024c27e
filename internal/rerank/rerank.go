package rerank

import (
	"sort"
	"strings"

	"github.com/dshills/kbsearch-mcp/internal/rank"
	"github.com/dshills/kbsearch-mcp/pkg/types"
)

// MethodHeuristic tags results produced by the default reranker
const MethodHeuristic = "heuristic"

// oversampleFactor widens the cut taken before deduplication so that up to
// limit non-duplicate items can emerge without re-entering the ranker. The
// value tracks the empirical duplicate rate; it is a tunable, not an
// invariant.
const oversampleFactor = 2

// Options carries the optional query-side signals for a rerank call
type Options struct {
	// QueryEmbedding is the embedded query vector
	QueryEmbedding []float32

	// FTSIDs is the set of ids returned by the lexical FTS match. A nil
	// map means the signal is absent, which disables the typo boost; an
	// empty non-nil map means FTS ran and found nothing.
	FTSIDs map[int64]struct{}

	// ContentWords overrides rank.Tokenize(query) as the query word list
	ContentWords []string
}

// Reranker orders candidates into the final result list
type Reranker interface {
	// Rerank returns at most limit results, deduplicated and sorted by
	// descending score
	Rerank(query string, candidates []types.Candidate, keywordIDs map[int64]struct{}, limit int, opts Options) []types.SearchResult
}

// Heuristic is the default stateless reranker. It combines the vector
// score with additive lexical, typo, and concise-match boosts, then
// deduplicates by normalized question text.
type Heuristic struct{}

// NewHeuristic creates the default reranker
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Rerank implements the Reranker interface.
//
// Each candidate scores vectorScore + ftsBoost (FTS hit) + typoBoost
// (keyword hit that FTS missed) + conciseMatchBoost. FTS and typo boosts
// are mutually exclusive by construction. The sorted list is oversampled
// to 2x limit, deduplicated by trimmed lowercase question preserving first
// occurrence, truncated to limit, and passed through the perfect-match
// shortcut.
func (h *Heuristic) Rerank(query string, candidates []types.Candidate, keywordIDs map[int64]struct{}, limit int, opts Options) []types.SearchResult {
	if len(candidates) == 0 {
		return nil
	}

	words := opts.ContentWords
	if words == nil {
		words = rank.Tokenize(query)
	}

	scored := make([]types.SearchResult, len(candidates))
	for i, c := range candidates {
		score := c.VectorScore

		if _, ftsHit := opts.FTSIDs[c.Entry.ID]; ftsHit {
			score += rank.FTSBoost
		} else if opts.FTSIDs != nil {
			// typo-only = keyword hits minus FTS hits
			if _, kwHit := keywordIDs[c.Entry.ID]; kwHit {
				score += rank.TypoBoost
			}
		}

		score += rank.ConciseMatchBoost(words, c.Entry.Question, rank.MaxExtraWords, rank.ConciseBoost)

		scored[i] = types.SearchResult{
			Entry:  c.Entry,
			Score:  score,
			Method: MethodHeuristic,
		}
	}

	// Stable: ties preserve candidate input order
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	head := limit * oversampleFactor
	if head > len(scored) {
		head = len(scored)
	}

	seen := make(map[string]struct{}, head)
	results := make([]types.SearchResult, 0, limit)
	for _, r := range scored[:head] {
		key := strings.ToLower(strings.TrimSpace(r.Entry.Question))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, r)
		if len(results) == limit {
			break
		}
	}

	return rank.PerfectMatchFilter(results, rank.PerfectScoreThreshold)
}
