package types

import "errors"

// Lifecycle errors
var (
	// ErrNotInitialized is returned when Search is called before Initialize
	ErrNotInitialized = errors.New("engine not initialized")
	// ErrDisposed is returned for any call after Dispose
	ErrDisposed = errors.New("engine disposed")
)

// Capability errors. Failures from the store, ANN index, and embedder are
// wrapped with the corresponding sentinel so callers can match with
// errors.Is.
var (
	ErrStore    = errors.New("store failure")
	ErrAnnIndex = errors.New("ann index failure")
	ErrEmbedder = errors.New("embedder failure")
)

// Data errors
var (
	// ErrSchemaMismatch is returned when a dimension or id-range
	// invariant is violated
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInvalidEntryID is returned for a non-positive entry ID
	ErrInvalidEntryID = errors.New("invalid entry ID")
	// ErrMissingMethod is returned for a result without a method tag
	ErrMissingMethod = errors.New("method tag is required")
)
