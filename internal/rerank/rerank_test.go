package rerank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/kbsearch-mcp/internal/rank"
	"github.com/dshills/kbsearch-mcp/pkg/types"
)

func candidate(id int64, question string, score float64) types.Candidate {
	return types.Candidate{
		Entry:       types.Entry{ID: id, Question: question, Answer: "answer"},
		VectorScore: score,
	}
}

func idSet(ids ...int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestRerankEmptyCandidates(t *testing.T) {
	h := NewHeuristic()
	assert.Empty(t, h.Rerank("dart", nil, nil, 3, Options{}))
}

func TestRerankVectorOrdering(t *testing.T) {
	h := NewHeuristic()
	candidates := []types.Candidate{
		candidate(1, "How do isolates work?", 0.3),
		candidate(2, "What is Flutter and how is it used today?", 0.8),
		candidate(3, "What about streams in general then?", 0.5),
	}

	results := h.Rerank("flutter", candidates, nil, 3, Options{FTSIDs: map[int64]struct{}{}})
	require.Len(t, results, 3)
	assert.Equal(t, int64(2), results[0].Entry.ID)
	assert.Equal(t, int64(3), results[1].Entry.ID)
	assert.Equal(t, int64(1), results[2].Entry.ID)
	for _, r := range results {
		assert.Equal(t, MethodHeuristic, r.Method)
	}
}

func TestRerankFTSBoost(t *testing.T) {
	h := NewHeuristic()
	candidates := []types.Candidate{
		candidate(1, "Unrelated question about many other things here", 0.6),
		candidate(2, "Another unrelated question about various different topics", 0.4),
	}

	// FTS hit on 2 lifts it over 1: 0.4 + 0.5 > 0.6
	results := h.Rerank("topics", candidates, idSet(2), 2, Options{FTSIDs: idSet(2)})
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Entry.ID)
	assert.InDelta(t, 0.4+rank.FTSBoost, results[0].Score, 1e-9)
}

func TestRerankTypoBoostExclusiveWithFTS(t *testing.T) {
	h := NewHeuristic()
	candidates := []types.Candidate{
		candidate(1, "A long question with a lot of additional words", 0.2),
	}

	// Keyword hit without an FTS hit: typo boost
	results := h.Rerank("datt", candidates, idSet(1), 1, Options{FTSIDs: idSet()})
	require.Len(t, results, 1)
	assert.InDelta(t, 0.2+rank.TypoBoost, results[0].Score, 1e-9)

	// Same id in both sets: only the FTS boost applies
	results = h.Rerank("datt", candidates, idSet(1), 1, Options{FTSIDs: idSet(1)})
	require.Len(t, results, 1)
	assert.InDelta(t, 0.2+rank.FTSBoost, results[0].Score, 1e-9)

	// Absent FTS signal disables the typo boost entirely
	results = h.Rerank("datt", candidates, idSet(1), 1, Options{})
	require.Len(t, results, 1)
	assert.InDelta(t, 0.2, results[0].Score, 1e-9)
}

func TestRerankConciseBoost(t *testing.T) {
	h := NewHeuristic()
	candidates := []types.Candidate{
		candidate(1, "What is Dart?", 0.5),
		candidate(2, "What is Dart and why would anyone ever use it?", 0.5),
	}

	results := h.Rerank("what is dart", candidates, nil, 2, Options{FTSIDs: idSet()})
	require.Len(t, results, 2)
	// The concise question wins on the boost alone
	assert.Equal(t, int64(1), results[0].Entry.ID)
	assert.InDelta(t, 0.5+rank.ConciseBoost, results[0].Score, 1e-9)
	assert.InDelta(t, 0.5, results[1].Score, 1e-9)
}

func TestRerankContentWordsOverride(t *testing.T) {
	h := NewHeuristic()
	candidates := []types.Candidate{
		candidate(1, "dart", 0.1),
	}

	// Content words replace the raw query tokens for the concise boost
	results := h.Rerank("tell me about dart please", candidates, nil, 1, Options{
		FTSIDs:       idSet(),
		ContentWords: []string{"dart"},
	})
	require.Len(t, results, 1)
	assert.InDelta(t, 0.1+rank.ConciseBoost, results[0].Score, 1e-9)
}

func TestRerankDeduplicatesByQuestion(t *testing.T) {
	h := NewHeuristic()
	candidates := []types.Candidate{
		candidate(1, "What is Dart?", 0.9),
		candidate(4, "  what is dart? ", 0.85), // same question modulo trim+case
		candidate(2, "What is Flutter and how is it used in practice?", 0.5),
	}

	results := h.Rerank("zzz", candidates, nil, 3, Options{FTSIDs: idSet()})
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].Entry.ID)
	assert.Equal(t, int64(2), results[1].Entry.ID)
}

func TestRerankLimitAndStability(t *testing.T) {
	h := NewHeuristic()
	candidates := []types.Candidate{
		candidate(1, "Question one about some broad topic of interest?", 0.5),
		candidate(2, "Question two about some broad topic of interest?", 0.5),
		candidate(3, "Question three about some broad topic of interest?", 0.5),
	}

	results := h.Rerank("zzz", candidates, nil, 2, Options{FTSIDs: idSet()})
	require.Len(t, results, 2)
	// Equal scores keep candidate input order
	assert.Equal(t, int64(1), results[0].Entry.ID)
	assert.Equal(t, int64(2), results[1].Entry.ID)
}

func TestRerankPerfectMatchShortcut(t *testing.T) {
	h := NewHeuristic()
	candidates := []types.Candidate{
		candidate(1, "An exact match question with quite a few words?", 0.9999),
		candidate(2, "Something else entirely different from the others here?", 0.7),
		candidate(3, "Yet another alternative question nobody really wanted today?", 0.6),
	}

	results := h.Rerank("zzz", candidates, nil, 3, Options{FTSIDs: idSet()})
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Entry.ID)
}

// Oversampling lets limit results survive when duplicates crowd the head
func TestRerankOversample(t *testing.T) {
	h := NewHeuristic()
	candidates := []types.Candidate{
		candidate(1, "Duplicate question text repeated across several entries here?", 0.9),
		candidate(2, "Duplicate question text repeated across several entries here?", 0.8),
		candidate(3, "A distinct question that should still make the cut?", 0.7),
		candidate(4, "Another distinct question that should also make it?", 0.6),
	}

	results := h.Rerank("zzz", candidates, nil, 2, Options{FTSIDs: idSet()})
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].Entry.ID)
	assert.Equal(t, int64(3), results[1].Entry.ID)
}
