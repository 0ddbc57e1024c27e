package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/dshills/kbsearch-mcp/pkg/types"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// buildMigrations renders all migrations for the configured schema names.
// Identifiers are interpolated after validateIdentifiers has vetted them;
// SQLite cannot bind identifiers as parameters.
func buildMigrations(cfg types.Config) []Migration {
	table := cfg.TableName
	fts := cfg.FTSTableName
	id := cfg.IDColumn
	category := cfg.CategoryColumn
	question := cfg.QuestionColumn
	answer := cfg.AnswerColumn

	up := fmt.Sprintf(`
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Knowledge base entries
CREATE TABLE IF NOT EXISTS %[1]s (
    %[3]s INTEGER PRIMARY KEY,
    %[4]s TEXT NOT NULL DEFAULT '',
    %[5]s TEXT NOT NULL,
    %[6]s TEXT NOT NULL
);

-- Full-text search over the question column
CREATE VIRTUAL TABLE IF NOT EXISTS %[2]s USING fts5(
    %[5]s,
    content='%[1]s',
    content_rowid='%[3]s'
);

-- Triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS %[2]s_ai AFTER INSERT ON %[1]s BEGIN
    INSERT INTO %[2]s(rowid, %[5]s) VALUES (new.%[3]s, new.%[5]s);
END;

CREATE TRIGGER IF NOT EXISTS %[2]s_ad AFTER DELETE ON %[1]s BEGIN
    INSERT INTO %[2]s(%[2]s, rowid, %[5]s) VALUES ('delete', old.%[3]s, old.%[5]s);
END;

CREATE TRIGGER IF NOT EXISTS %[2]s_au AFTER UPDATE ON %[1]s BEGIN
    INSERT INTO %[2]s(%[2]s, rowid, %[5]s) VALUES ('delete', old.%[3]s, old.%[5]s);
    INSERT INTO %[2]s(rowid, %[5]s) VALUES (new.%[3]s, new.%[5]s);
END;
`, table, fts, id, category, question, answer)

	down := fmt.Sprintf(`
DROP TRIGGER IF EXISTS %[2]s_au;
DROP TRIGGER IF EXISTS %[2]s_ad;
DROP TRIGGER IF EXISTS %[2]s_ai;
DROP TABLE IF EXISTS %[2]s;
DROP TABLE IF EXISTS %[1]s;
DROP TABLE IF EXISTS schema_version;
`, table, fts)

	return []Migration{
		{
			Version: "1.0.0",
			Up:      up,
			Down:    down,
		},
	}
}

// ApplyMigrations brings the database schema up to the current version
func ApplyMigrations(ctx context.Context, db *sql.DB, cfg types.Config) error {
	// Check if schema_version table exists
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	// Parse current version (default to 0.0.0 if no migrations applied)
	var currentVersion *semver.Version
	if err == sql.ErrNoRows {
		currentVersion = semver.MustParse("0.0.0")
	} else if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	} else {
		var currentVersionStr string
		err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersionStr)
		if err == sql.ErrNoRows || currentVersionStr == "" {
			currentVersion = semver.MustParse("0.0.0")
		} else if err != nil {
			return fmt.Errorf("failed to read schema_version: %w", err)
		} else {
			currentVersion, err = semver.NewVersion(currentVersionStr)
			if err != nil {
				return fmt.Errorf("invalid current schema version %s: %w", currentVersionStr, err)
			}
		}
	}

	// Run pending migrations in order
	for _, migration := range buildMigrations(cfg) {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}
