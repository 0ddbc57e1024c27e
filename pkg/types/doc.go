// Package types provides shared type definitions for the kbsearch engine.
//
// This package defines the boundary types used across components: knowledge
// base entries, search candidates and results, engine configuration, and the
// typed errors surfaced by the engine and its capabilities.
//
// # Core Types
//
// Entry is one immutable question/answer record. Its ID is 1-based and
// dense; index i of the embedding set corresponds to Entry.ID == i+1:
//
//	entry := types.Entry{
//	    ID:       1,
//	    Category: "Dart",
//	    Question: "What is Dart?",
//	    Answer:   "Dart is a language.",
//	}
//
// SearchResult carries the entry, its combined score (cosine similarity
// plus additive boosts, not clamped), and the method tag of the reranker
// that produced it.
//
// # Configuration
//
// Config holds all engine tunables (candidate pool size, FTS limit, HNSW
// parameters, embedding dimension, and store schema names). Use
// DefaultConfig or Normalize to fill unset fields:
//
//	cfg := types.DefaultConfig()
//	cfg.EmbeddingDim = 384
//
// # Errors
//
// Lifecycle misuse (ErrNotInitialized, ErrDisposed), capability failures
// (ErrStore, ErrAnnIndex, ErrEmbedder), and data invariant violations
// (ErrSchemaMismatch) are exposed as sentinel errors and matched with
// errors.Is after wrapping.
package types
