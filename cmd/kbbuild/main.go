package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dshills/kbsearch-mcp/internal/builder"
	"github.com/dshills/kbsearch-mcp/internal/embedder"
	"github.com/dshills/kbsearch-mcp/internal/store"
	"github.com/dshills/kbsearch-mcp/pkg/types"
)

func main() {
	app := &cli.App{
		Name:  "kbbuild",
		Usage: "Build the kbsearch knowledge base from a JSON corpus file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to the JSON corpus file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output directory for kb.db and embeddings.bin",
				Value:   "./kb",
			},
			&cli.IntFlag{
				Name:  "dim",
				Usage: "Embedding dimension",
				Value: types.DefaultEmbeddingDim,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Concurrent embedding requests",
				Value: builder.DefaultConcurrency,
			},
		},
		Before: func(c *cli.Context) error {
			// Optional .env for API keys; absence is fine
			_ = godotenv.Load()
			return nil
		},
		Action: buildCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func buildCommand(c *cli.Context) error {
	cfg := types.DefaultConfig()
	cfg.EmbeddingDim = c.Int("dim")

	outDir := c.String("out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	entries, err := builder.LoadEntries(c.String("input"))
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(filepath.Join(outDir, "kb.db"), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	emb, err := embedder.NewFromEnv(cfg.EmbeddingDim)
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	log.Printf("Building knowledge base: %d entries, provider %s, dim %d",
		len(entries), emb.Provider(), cfg.EmbeddingDim)

	b := builder.New(st, emb, cfg, c.Int("concurrency"))
	stats, err := b.Build(c.Context, entries, filepath.Join(outDir, "embeddings.bin"))
	if err != nil {
		return err
	}

	log.Printf("Done: %d entries, %d-dim embeddings, %d blob bytes in %s",
		stats.Entries, stats.Dimension, stats.BlobBytes, stats.Duration.Round(time.Millisecond))
	return nil
}
