// Package ann provides the approximate nearest-neighbour capability and
// an in-process HNSW implementation over cosine distance.
//
// The engine builds the index once at initialization when the corpus is
// large enough to justify it (see Config.HNSWThreshold) and falls back to
// a linear cosine scan below that size. Add accumulates vectors, Build
// freezes the graph, and the index is read-only and safe for concurrent
// Search calls from then on.
//
// Distances are cosine distances in [0, 2]; the engine maps similarity as
// 1 - distance.
package ann
