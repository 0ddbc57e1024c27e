// Package rank provides the pure, stateless ranking utilities used by the
// search pipeline: token normalization, FTS match-expression composition,
// 1-edit typo matching, the concise-match boost, the perfect-match
// shortcut, and top-k id selection.
//
// Nothing in this package holds state. The two compiled regular
// expressions (Unicode non-word class and whitespace class) are built once
// at package load and shared.
package rank
