// Package embedder provides the embedding capability: query text to dense
// vector, plus pure content-word extraction for the lexical and typo
// signals.
//
// Two providers ship with the engine. OpenAIProvider calls the OpenAI
// embeddings API and is the natural choice at corpus-build time.
// LocalProvider derives deterministic unit-norm vectors from a content
// hash, keeping the whole pipeline offline.
//
// Embeddings are cached in-process by content hash with LRU eviction.
// NewFromEnv selects a provider from KBSEARCH_EMBEDDING_PROVIDER or the
// presence of OPENAI_API_KEY, defaulting to local.
package embedder
