// Package rerank defines the reranker capability and ships the default
// heuristic implementation.
//
// The heuristic reranker fuses the dense-vector score with three additive
// lexical signals - the FTS boost, the typo boost for 1-edit keyword hits
// that FTS missed, and the concise-match boost for short questions that
// cover every query word - then deduplicates by normalized question text
// and applies the perfect-match shortcut. It is stateless; custom
// rerankers plug in through the Reranker interface and tag results with
// their own method string.
package rerank
