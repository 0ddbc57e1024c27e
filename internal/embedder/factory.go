package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by NewFromEnv
const (
	EnvProvider  = "KBSEARCH_EMBEDDING_PROVIDER"
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. KBSEARCH_EMBEDDING_PROVIDER (openai, local)
//  2. OPENAI_API_KEY present -> openai
//  3. Default to the local deterministic provider
func NewFromEnv(dim int) (Embedder, error) {
	provider := strings.ToLower(os.Getenv(EnvProvider))
	apiKey := os.Getenv(EnvOpenAIKey)

	cache := NewCache(10000)

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, "", dim, cache)
	case ProviderLocal:
		return NewLocalProvider(dim, cache), nil
	case "":
		// Auto-detect
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, provider)
	}

	if apiKey != "" {
		return NewOpenAIProvider(apiKey, "", dim, cache)
	}
	return NewLocalProvider(dim, cache), nil
}
