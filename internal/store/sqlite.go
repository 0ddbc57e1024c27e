package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dshills/kbsearch-mcp/pkg/types"
)

// SQLiteStore implements EntryStore over a SQLite database with an FTS5
// index on the question column
type SQLiteStore struct {
	db  *sql.DB
	cfg types.Config
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) the knowledge base at dbPath and
// applies migrations for the configured schema names
func NewSQLiteStore(dbPath string, cfg types.Config) (*SQLiteStore, error) {
	cfg = cfg.Normalize()
	if err := validateIdentifiers(cfg); err != nil {
		return nil, err
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db, cfg: cfg}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadQuestions returns the id -> question map for every entry
func (s *SQLiteStore) LoadQuestions(ctx context.Context) (map[int64]string, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s",
		s.cfg.IDColumn, s.cfg.QuestionColumn, s.cfg.TableName)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	questions := make(map[int64]string)
	for rows.Next() {
		var id int64
		var question string
		if err := rows.Scan(&id, &question); err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		questions[id] = question
	}

	return questions, rows.Err()
}

// FTSMatch executes an FTS5 match expression against the question index
// and returns up to limit row ids. The expression is bound as a value;
// composing it safely is the caller's job (see rank.MatchExpression).
func (s *SQLiteStore) FTSMatch(ctx context.Context, expr string, limit int) ([]int64, error) {
	if expr == "" {
		return nil, fmt.Errorf("empty match expression")
	}

	query := fmt.Sprintf("SELECT rowid FROM %s WHERE %s MATCH ? LIMIT ?",
		s.cfg.FTSTableName, s.cfg.FTSTableName)

	rows, err := s.db.QueryContext(ctx, query, expr, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS match: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan FTS row: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// FetchEntries returns the full entries for the given ids, in no
// particular order
func (s *SQLiteStore) FetchEntries(ctx context.Context, ids []int64) ([]types.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s WHERE %s IN (%s)",
		s.cfg.IDColumn, s.cfg.CategoryColumn, s.cfg.QuestionColumn, s.cfg.AnswerColumn,
		s.cfg.TableName, s.cfg.IDColumn, placeholders)

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]types.Entry, 0, len(ids))
	for rows.Next() {
		var e types.Entry
		if err := rows.Scan(&e.ID, &e.Category, &e.Question, &e.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Writer surface, used by the corpus builder. The knowledge base is
// immutable once built; these are construction-time operations only.

// InsertEntries inserts entries with their explicit ids in one transaction
func (s *SQLiteStore) InsertEntries(ctx context.Context, entries []types.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s) VALUES (?, ?, ?, ?)",
		s.cfg.TableName, s.cfg.IDColumn, s.cfg.CategoryColumn,
		s.cfg.QuestionColumn, s.cfg.AnswerColumn)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if e.ID < 1 {
			_ = tx.Rollback()
			return fmt.Errorf("%w: %d", types.ErrInvalidEntryID, e.ID)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.Category, e.Question, e.Answer); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert entry %d: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// EntryCount returns the number of entries in the knowledge base
func (s *SQLiteStore) EntryCount(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.cfg.TableName)

	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Optimize merges the FTS index b-trees after bulk insertion
func (s *SQLiteStore) Optimize(ctx context.Context) error {
	query := fmt.Sprintf("INSERT INTO %s(%s) VALUES('optimize')",
		s.cfg.FTSTableName, s.cfg.FTSTableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to optimize FTS index: %w", err)
	}
	return nil
}
