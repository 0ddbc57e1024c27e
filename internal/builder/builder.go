package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/kbsearch-mcp/internal/embedder"
	"github.com/dshills/kbsearch-mcp/internal/f16"
	"github.com/dshills/kbsearch-mcp/internal/store"
	"github.com/dshills/kbsearch-mcp/pkg/types"
)

// DefaultConcurrency bounds parallel embedding requests
const DefaultConcurrency = 4

// InputEntry is one record of the JSON corpus file
type InputEntry struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Stats summarizes a completed build
type Stats struct {
	Entries   int
	Dimension int
	BlobBytes int
	Duration  time.Duration
}

// Builder constructs the knowledge base artifacts: SQLite rows plus the
// half-precision embedding blob. The corpus is immutable after a build.
type Builder struct {
	store       *store.SQLiteStore
	embedder    embedder.Embedder
	cfg         types.Config
	concurrency int
}

// New creates a builder over the given store and embedder
func New(st *store.SQLiteStore, emb embedder.Embedder, cfg types.Config, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Builder{
		store:       st,
		embedder:    emb,
		cfg:         cfg.Normalize(),
		concurrency: concurrency,
	}
}

// LoadEntries reads the JSON corpus file and assigns dense 1-based ids in
// file order
func LoadEntries(inputPath string) ([]types.Entry, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	var input []InputEntry
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("parsing corpus file: %w", err)
	}
	if len(input) == 0 {
		return nil, fmt.Errorf("corpus file %s contains no entries", inputPath)
	}

	entries := make([]types.Entry, len(input))
	for i, in := range input {
		if in.Question == "" {
			return nil, fmt.Errorf("entry %d has an empty question", i+1)
		}
		entries[i] = types.Entry{
			ID:       int64(i + 1),
			Category: in.Category,
			Question: in.Question,
			Answer:   in.Answer,
		}
	}
	return entries, nil
}

// Build inserts the entries, embeds every question with bounded
// concurrency, and writes the embedding blob to blobPath
func (b *Builder) Build(ctx context.Context, entries []types.Entry, blobPath string) (*Stats, error) {
	start := time.Now()

	if err := b.store.InsertEntries(ctx, entries); err != nil {
		return nil, fmt.Errorf("inserting entries: %w", err)
	}
	if err := b.store.Optimize(ctx); err != nil {
		return nil, fmt.Errorf("optimizing FTS index: %w", err)
	}

	vectors, err := b.embedQuestions(ctx, entries)
	if err != nil {
		return nil, err
	}

	blob := f16.Encode(vectors)
	if err := writeFileAtomic(blobPath, blob); err != nil {
		return nil, fmt.Errorf("writing embedding blob: %w", err)
	}

	return &Stats{
		Entries:   len(entries),
		Dimension: b.cfg.EmbeddingDim,
		BlobBytes: len(blob),
		Duration:  time.Since(start),
	}, nil
}

// embedQuestions embeds every question concurrently; slot i of the result
// corresponds to entry id i+1
func (b *Builder) embedQuestions(ctx context.Context, entries []types.Entry) ([][]float32, error) {
	vectors := make([][]float32, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, entry := range entries {
		g.Go(func() error {
			vec, err := b.embedder.Embed(gctx, entry.Question)
			if err != nil {
				return fmt.Errorf("embedding entry %d: %w", entry.ID, err)
			}
			if len(vec) != b.cfg.EmbeddingDim {
				return fmt.Errorf("%w: entry %d embedded to dimension %d, want %d",
					types.ErrSchemaMismatch, entry.ID, len(vec), b.cfg.EmbeddingDim)
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// writeFileAtomic writes via a temp file and rename so a failed build
// never leaves a half-written blob
func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
