package rank

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dshills/kbsearch-mcp/pkg/types"
)

// Boost constants. Typo matches are scarcer than FTS hits and therefore
// more discriminative, so they carry the larger boost.
const (
	// FTSBoost is added to a candidate's score on a lexical FTS hit
	FTSBoost = 0.5
	// TypoBoost is added on a 1-edit keyword hit that FTS missed
	TypoBoost = 0.7
	// ConciseBoost is the concise-match boost ceiling
	ConciseBoost = 0.5
	// PerfectScoreThreshold triggers the perfect-match shortcut
	PerfectScoreThreshold = 0.999
	// MaxExtraWords is the default extra-word allowance for the concise
	// boost
	MaxExtraWords = 1
)

// Compiled once and shared process-wide
var (
	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Tokenize normalizes text into lowercase word tokens: trim, lowercase,
// replace any rune outside letter/number/underscore/whitespace with a
// space, collapse whitespace, split, drop empties. Idempotent on its own
// output.
func Tokenize(text string) []string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	cleaned := nonWordPattern.ReplaceAllString(lowered, " ")
	collapsed := spacePattern.ReplaceAllString(cleaned, " ")
	return strings.Fields(collapsed)
}

// MatchExpression builds an FTS5 match expression over column for the
// given words: `col: w1 OR col: w2 ...` with embedded quotes doubled per
// the FTS literal-escape rule. Returns "" for an empty word list; callers
// must not execute an empty expression.
func MatchExpression(words []string, column string) string {
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString(column)
		b.WriteString(": ")
		b.WriteString(strings.ReplaceAll(w, `"`, `""`))
	}
	return b.String()
}

// Within1 reports whether two strings are within one edit (substitution,
// insertion, or deletion of a single codepoint) of each other. Runs as a
// single two-pointer scan without temporary allocations.
func Within1(a, b string) bool {
	if a == b {
		return true
	}

	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)

	switch {
	case la == lb:
		return oneSubstitution(a, b)
	case la == lb+1:
		return oneInsertion(b, a)
	case lb == la+1:
		return oneInsertion(a, b)
	default:
		return false
	}
}

// oneSubstitution checks equal-rune-count strings for exactly one
// differing position
func oneSubstitution(a, b string) bool {
	diff := 0
	for len(a) > 0 {
		ra, sa := utf8.DecodeRuneInString(a)
		rb, sb := utf8.DecodeRuneInString(b)
		if ra != rb {
			diff++
			if diff > 1 {
				return false
			}
		}
		a = a[sa:]
		b = b[sb:]
	}
	return diff == 1
}

// oneInsertion checks whether long equals short with one extra rune
// inserted somewhere; at most one skip on the long side
func oneInsertion(short, long string) bool {
	skipped := false
	for len(short) > 0 {
		rs, ss := utf8.DecodeRuneInString(short)
		rl, sl := utf8.DecodeRuneInString(long)
		if rs == rl {
			short = short[ss:]
			long = long[sl:]
			continue
		}
		if skipped {
			return false
		}
		skipped = true
		long = long[sl:]
	}
	if len(long) == 0 {
		return skipped
	}
	if skipped {
		return false
	}
	// The single remaining rune on the long side is the insertion
	_, sl := utf8.DecodeRuneInString(long)
	return len(long) == sl
}

// OverlapCount counts how many query words have a 1-edit match among the
// question's tokens
func OverlapCount(queryWords []string, question string) int {
	toks := Tokenize(question)
	count := 0
	for _, q := range queryWords {
		for _, w := range toks {
			if Within1(q, w) {
				count++
				break
			}
		}
	}
	return count
}

// ConciseMatchBoost rewards short questions that cover every query word.
// Returns 0 unless all query words match within one edit and the question
// has at most maxExtra words beyond the query; otherwise scales the
// ceiling down as extra words accumulate.
func ConciseMatchBoost(queryWords []string, question string, maxExtra int, ceiling float64) float64 {
	if len(queryWords) == 0 {
		return 0
	}

	toks := Tokenize(question)
	if len(toks) > len(queryWords)+maxExtra {
		return 0
	}

	matched := 0
	for _, q := range queryWords {
		for _, w := range toks {
			if Within1(q, w) {
				matched++
				break
			}
		}
	}
	if matched < len(queryWords) {
		return 0
	}

	extra := len(toks) - len(queryWords)
	switch {
	case extra <= 0:
		return ceiling
	case extra == 1:
		return 0.7 * ceiling
	default:
		return 0.4 * ceiling
	}
}

// PerfectMatchFilter collapses the result list to a single entry when
// exactly one result scores at or above threshold. Any other distribution
// of scores leaves the list unchanged.
func PerfectMatchFilter(results []types.SearchResult, threshold float64) []types.SearchResult {
	perfect := -1
	for i, r := range results {
		if r.Score >= threshold {
			if perfect >= 0 {
				return results
			}
			perfect = i
		}
	}
	if perfect < 0 {
		return results
	}
	return results[perfect : perfect+1]
}

// TopIDsByScore returns up to k ids ordered by descending score. Equal
// scores order by ascending id for determinism.
func TopIDsByScore(scores map[int64]float64, k int) []int64 {
	return TopIDsByCombinedScore(scores, nil, 0, k)
}

// TopIDsByCombinedScore returns up to k ids ordered by descending
// vectorScore plus boost for ids present in ftsHits
func TopIDsByCombinedScore(scores map[int64]float64, ftsHits map[int64]struct{}, boost float64, k int) []int64 {
	type rankedID struct {
		id    int64
		score float64
	}

	ranked := make([]rankedID, 0, len(scores))
	for id, score := range scores {
		if _, ok := ftsHits[id]; ok {
			score += boost
		}
		ranked = append(ranked, rankedID{id: id, score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	if k < 0 {
		k = 0
	}
	ids := make([]int64, k)
	for i := 0; i < k; i++ {
		ids[i] = ranked[i].id
	}
	return ids
}
