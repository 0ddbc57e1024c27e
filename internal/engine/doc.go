// Package engine orchestrates the hybrid search pipeline over a local
// question/answer knowledge base.
//
// A query flows through three signals: dense-vector cosine similarity
// (HNSW above the configured corpus-size threshold, linear scan below),
// SQLite FTS5 lexical matching with a single-word retry, and a 1-edit
// typo-tolerant scan of the question map. The union of vector top-K and
// keyword hits forms the candidate pool, the reranker fuses the signals
// into a ranked list, and a final keyword-overlap filter drops
// pure-semantic matches that share no word with the query.
//
// The engine's lifecycle is constructed -> initialized -> disposed, with
// idempotent Initialize and Dispose. All state is immutable after
// initialization, so concurrent searches are safe; FTS failures degrade
// to a missing lexical signal while every other capability failure aborts
// the query with a typed error.
package engine
