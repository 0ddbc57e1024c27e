package embedder

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// DefaultOpenAIModel is the embedding model requested from the API
	DefaultOpenAIModel = "text-embedding-3-small"

	// LocalDimension is the vector length of the local provider
	LocalDimension = 128
)

// OpenAIProvider generates embeddings through the OpenAI API. It is used
// at corpus-build time; query-time search works against the precomputed
// blob and only needs a provider when queries are embedded online.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	dim    int
	cache  *Cache
}

// NewOpenAIProvider creates an OpenAI-backed embedder. dim requests a
// reduced output dimension from the API so the vectors match the engine
// configuration.
func NewOpenAIProvider(apiKey, model string, dim int, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrNoProviderEnabled)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
		dim:    dim,
		cache:  cache,
	}, nil
}

// Embed generates the dense vector for the given text
func (o *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if o.cache != nil {
		if vec, ok := o.cache.Get(hash); ok {
			return vec, nil
		}
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(o.model),
		Input:      []string{text},
		Dimensions: o.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding data returned", ErrProviderFailed)
	}

	vec := resp.Data[0].Embedding
	if len(vec) != o.dim {
		return nil, fmt.Errorf("%w: got dimension %d, want %d", ErrProviderFailed, len(vec), o.dim)
	}

	if o.cache != nil {
		o.cache.Set(hash, vec)
	}
	return vec, nil
}

// ContentWords returns the stop-word-stripped tokens of the text
func (o *OpenAIProvider) ContentWords(text string) []string {
	return ContentWords(text)
}

// Dimension returns the embedding dimension
func (o *OpenAIProvider) Dimension() int {
	return o.dim
}

// Provider returns the provider name
func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

// Close releases resources
func (o *OpenAIProvider) Close() error {
	return nil
}

// LocalProvider generates deterministic hash-derived vectors. It keeps
// the pipeline fully offline: no model quality, but stable vectors that
// exercise every code path, which is what tests and air-gapped setups
// need.
type LocalProvider struct {
	dim   int
	cache *Cache
}

// NewLocalProvider creates a local deterministic embedder
func NewLocalProvider(dim int, cache *Cache) *LocalProvider {
	if dim <= 0 {
		dim = LocalDimension
	}
	return &LocalProvider{dim: dim, cache: cache}
}

// Embed derives a unit-norm vector from the SHA-256 of the text
func (l *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if l.cache != nil {
		if vec, ok := l.cache.Get(hash); ok {
			return vec, nil
		}
	}

	vec := make([]float32, l.dim)
	digest := sha256.Sum256([]byte(text))
	for i := 0; i < l.dim; i++ {
		// Re-hash every 32 components to extend the digest
		if i > 0 && i%len(digest) == 0 {
			digest = sha256.Sum256(digest[:])
		}
		vec[i] = float32(digest[i%len(digest)])/127.5 - 1.0
	}

	// Normalize to unit length
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if norm := math.Sqrt(sum); norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}

	if l.cache != nil {
		l.cache.Set(hash, vec)
	}
	return vec, nil
}

// ContentWords returns the stop-word-stripped tokens of the text
func (l *LocalProvider) ContentWords(text string) []string {
	return ContentWords(text)
}

// Dimension returns the embedding dimension
func (l *LocalProvider) Dimension() int {
	return l.dim
}

// Provider returns the provider name
func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

// Close releases resources
func (l *LocalProvider) Close() error {
	return nil
}
