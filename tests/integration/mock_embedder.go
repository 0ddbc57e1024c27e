package integration

import (
	"context"

	"github.com/dshills/kbsearch-mcp/internal/embedder"
)

// scriptedEmbedder returns a fixed vector per text, falling back to the
// zero vector, so integration tests control the dense signal exactly
type scriptedEmbedder struct {
	dim     int
	vectors map[string][]float32
}

func newScriptedEmbedder(dim int) *scriptedEmbedder {
	return &scriptedEmbedder{
		dim:     dim,
		vectors: make(map[string][]float32),
	}
}

// script fixes the embedding for a given text
func (s *scriptedEmbedder) script(text string, vector []float32) {
	s.vectors[text] = vector
}

func (s *scriptedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, s.dim), nil
}

func (s *scriptedEmbedder) ContentWords(text string) []string {
	return embedder.ContentWords(text)
}

func (s *scriptedEmbedder) Dimension() int   { return s.dim }
func (s *scriptedEmbedder) Provider() string { return "scripted" }
func (s *scriptedEmbedder) Close() error     { return nil }
