package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/kbsearch-mcp/internal/builder"
	"github.com/dshills/kbsearch-mcp/internal/engine"
	"github.com/dshills/kbsearch-mcp/internal/store"
	"github.com/dshills/kbsearch-mcp/pkg/types"
)

const dim = 16

func oneHot(i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}

// buildKnowledgeBase runs the real builder over a JSON corpus and returns
// an initialized engine on the resulting artifacts
func buildKnowledgeBase(t *testing.T, emb *scriptedEmbedder) *engine.Engine {
	t.Helper()
	ctx := context.Background()

	corpus := []builder.InputEntry{
		{Category: "Dart", Question: "What is Dart?", Answer: "Dart is a language."},
		{Category: "Flutter", Question: "What is Flutter?", Answer: "Flutter is a UI toolkit."},
		{Category: "Dart", Question: "How do isolates work?", Answer: "Isolates are lightweight threads."},
	}
	raw, err := json.Marshal(corpus)
	require.NoError(t, err)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "corpus.json")
	require.NoError(t, os.WriteFile(inputPath, raw, 0644))

	cfg := types.DefaultConfig()
	cfg.EmbeddingDim = dim

	dbPath := filepath.Join(dir, "kb.db")
	st, err := store.NewSQLiteStore(dbPath, cfg)
	require.NoError(t, err)

	// Question embeddings are one-hot per entry
	emb.script("What is Dart?", oneHot(0))
	emb.script("What is Flutter?", oneHot(1))
	emb.script("How do isolates work?", oneHot(2))

	entries, err := builder.LoadEntries(inputPath)
	require.NoError(t, err)

	blobPath := filepath.Join(dir, "embeddings.bin")
	_, err = builder.New(st, emb, cfg, 2).Build(ctx, entries, blobPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Reopen read-side artifacts the way the server does
	readStore, err := store.NewSQLiteStore(dbPath, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = readStore.Close() })

	blob, err := os.ReadFile(blobPath)
	require.NoError(t, err)

	eng := engine.NewEngine(cfg, readStore, emb, blob)
	require.NoError(t, eng.Initialize(ctx))
	return eng
}

func TestEndToEndSearch(t *testing.T) {
	emb := newScriptedEmbedder(dim)
	eng := buildKnowledgeBase(t, emb)

	emb.script("how do isolates work", oneHot(2))

	results, err := eng.Search(context.Background(), "how do isolates work", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(3), results[0].Entry.ID)
	assert.Equal(t, "Isolates are lightweight threads.", results[0].Entry.Answer)
}

func TestEndToEndTypoQuery(t *testing.T) {
	emb := newScriptedEmbedder(dim)
	eng := buildKnowledgeBase(t, emb)

	// No dense signal at all: the zero query vector scores 0 everywhere,
	// so only the typo path can surface the entry
	results, err := eng.Search(context.Background(), "flutted", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(2), results[0].Entry.ID)
}

func TestEndToEndNoHallucination(t *testing.T) {
	emb := newScriptedEmbedder(dim)
	eng := buildKnowledgeBase(t, emb)

	// Strong dense hit on entry 1, but zero lexical overlap
	emb.script("qqqq", oneHot(0))

	results, err := eng.Search(context.Background(), "qqqq", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEndToEndResultInvariants(t *testing.T) {
	emb := newScriptedEmbedder(dim)
	eng := buildKnowledgeBase(t, emb)

	queries := []string{"dart", "flutter", "isolates", "what is dart", "zzzz", ""}
	for _, q := range queries {
		results, err := eng.Search(context.Background(), q, 2)
		require.NoError(t, err, "query %q", q)
		assert.LessOrEqual(t, len(results), 2, "query %q", q)

		seen := make(map[int64]bool)
		for i, r := range results {
			assert.GreaterOrEqual(t, r.Entry.ID, int64(1))
			assert.LessOrEqual(t, r.Entry.ID, int64(3))
			assert.False(t, seen[r.Entry.ID], "duplicate id for query %q", q)
			seen[r.Entry.ID] = true
			if i > 0 {
				assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
			}
		}
	}
}

func TestConcurrentSearches(t *testing.T) {
	emb := newScriptedEmbedder(dim)
	eng := buildKnowledgeBase(t, emb)
	emb.script("dart", oneHot(0))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Search(context.Background(), "dart", 3)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestDisposeReleasesStore(t *testing.T) {
	emb := newScriptedEmbedder(dim)
	eng := buildKnowledgeBase(t, emb)

	require.NoError(t, eng.Dispose())
	_, err := eng.Search(context.Background(), "dart", 3)
	assert.ErrorIs(t, err, types.ErrDisposed)
	assert.NoError(t, eng.Dispose())
}
