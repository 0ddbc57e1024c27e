package ann

import "errors"

var (
	// ErrAlreadyBuilt is returned when Add is called after Build
	ErrAlreadyBuilt = errors.New("index already built")
	// ErrNotBuilt is returned when Search is called before Build
	ErrNotBuilt = errors.New("index not built")
	// ErrDimensionMismatch is returned when a vector doesn't match the
	// index dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Neighbor is one approximate nearest-neighbour result. Distance is
// cosine distance in [0, 2]; callers map similarity as 1 - Distance.
type Neighbor struct {
	ID       int64
	Distance float64
}

// Index is the approximate nearest-neighbour capability. Add accumulates
// vectors, Build freezes the index, and Search runs top-k queries.
// Implementations must support concurrent Search calls after Build.
type Index interface {
	Add(id int64, vector []float32) error
	Build() error
	Search(vector []float32, k int) ([]Neighbor, error)
}
