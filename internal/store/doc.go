// Package store implements the entry store capability over SQLite.
//
// The knowledge base is a single SQLite file with one entries table and a
// external-content FTS5 virtual table over the question column, kept
// aligned by triggers. Table and column names come from the engine Config
// and are validated against a strict identifier pattern before being
// interpolated into SQL; all values are bound as parameters.
//
// Two drivers are supported behind build tags: mattn/go-sqlite3 when
// built with cgo (tags "cgo_sqlite,fts5") and the pure Go
// modernc.org/sqlite otherwise. See build_cgo.go and build_purego.go.
//
// The reader surface (LoadQuestions, FTSMatch, FetchEntries) satisfies the
// EntryStore interface the engine consumes and is safe for concurrent
// queries. The writer surface (InsertEntries, Optimize) exists for the
// corpus builder only; the knowledge base is immutable once built.
package store
