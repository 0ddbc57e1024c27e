// Package builder constructs the knowledge base artifacts from a JSON
// corpus file: the SQLite entries database with its FTS5 index and the
// half-precision embedding blob the engine loads at initialization.
//
// Questions are embedded with bounded concurrency and the blob is written
// atomically, so an interrupted build never leaves a corrupt artifact.
// Builds are one-shot; the resulting corpus is immutable.
package builder
