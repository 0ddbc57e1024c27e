package store

import (
	"context"
	"errors"
	"regexp"

	"github.com/dshills/kbsearch-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entry doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidIdentifier is returned when a configured schema name is
	// not a valid SQL identifier
	ErrInvalidIdentifier = errors.New("invalid schema identifier")
)

// EntryStore is the read capability the engine requires from the host: a
// question map for the typo scan, best-effort lexical FTS matching, and
// entry fetch by id-set.
//
// Implementations must be safe for concurrent read-only queries;
// FetchEntries preserves no particular order and callers reorder by id.
type EntryStore interface {
	// LoadQuestions returns the id -> question map for every entry
	LoadQuestions(ctx context.Context) (map[int64]string, error)

	// FTSMatch executes an FTS match expression and returns up to limit
	// row ids
	FTSMatch(ctx context.Context, expr string, limit int) ([]int64, error)

	// FetchEntries returns the full entries for the given ids, in no
	// particular order
	FetchEntries(ctx context.Context, ids []int64) ([]types.Entry, error)

	// Close releases store resources
	Close() error
}

// identPattern restricts configured table and column names. Identifiers
// cannot be bound as SQL parameters, so they are validated before
// interpolation; values are always bound.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateIdentifiers rejects any configured schema name that is not a
// plain SQL identifier
func validateIdentifiers(cfg types.Config) error {
	for _, name := range []string{
		cfg.TableName, cfg.FTSTableName, cfg.IDColumn,
		cfg.CategoryColumn, cfg.QuestionColumn, cfg.AnswerColumn,
	} {
		if !identPattern.MatchString(name) {
			return ErrInvalidIdentifier
		}
	}
	return nil
}
