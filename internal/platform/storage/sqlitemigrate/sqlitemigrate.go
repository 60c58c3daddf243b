// Package sqlitemigrate applies and reverts embedded SQL migrations.
//
// Each migration file may carry a "-- +migrate Up" section and a
// "-- +migrate Down" section. Applied files are recorded by their
// root-relative name in the schema_migrations table.
package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const migrationTable = "schema_migrations"

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// ErrIrreversible is returned when a migration selected for revert has no
// Down section.
var ErrIrreversible = errors.New("migration has no down section")

// ErrSchemaConflict is returned when a migration's objects already exist and
// their definition was not accepted.
var ErrSchemaConflict = errors.New("existing schema conflicts with migration")

// ExistingCheck inspects objects that a migration found already present and
// returns nil when they match what the migration would have created.
type ExistingCheck func(ctx context.Context, tx *sql.Tx, key string) error

// ApplyOptions tunes ApplyMigrationsWithOptions.
type ApplyOptions struct {
	// CheckExisting decides whether an "already exists" failure can be
	// recorded as applied. When nil, such failures are ErrSchemaConflict.
	CheckExisting ExistingCheck
}

// AppliedMigration describes one recorded migration.
type AppliedMigration struct {
	Name      string
	AppliedAt time.Time
}

type migrationFile struct {
	key  string // name recorded in schema_migrations
	path string // path inside the migration FS
}

// ApplyMigrations executes embedded migrations from migrationRoot at most once per file.
func ApplyMigrations(ctx context.Context, sqlDB *sql.DB, migrationFS fs.FS, migrationRoot string) error {
	return ApplyMigrationsWithOptions(ctx, sqlDB, migrationFS, migrationRoot, ApplyOptions{})
}

// ApplyMigrationsWithOptions executes embedded migrations from migrationRoot
// at most once per file. A failed or conflicting migration is not recorded.
func ApplyMigrationsWithOptions(ctx context.Context, sqlDB *sql.DB, migrationFS fs.FS, migrationRoot string, opts ApplyOptions) error {
	if sqlDB == nil {
		return fmt.Errorf("sql db is required")
	}

	files, err := listMigrationFiles(migrationFS, migrationRoot)
	if err != nil {
		return err
	}
	if err := ensureMigrationTable(ctx, sqlDB); err != nil {
		return err
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := fs.ReadFile(migrationFS, file.path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file.key, err)
		}

		applied, err := isApplied(ctx, sqlDB, file.key)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", file.key, err)
		}
		if applied {
			continue
		}

		upSQL := ExtractUpMigration(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		tx, err := sqlDB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration transaction %s: %w", file.key, err)
		}

		if _, err := tx.ExecContext(ctx, upSQL); err != nil {
			if !IsAlreadyExistsError(err) {
				_ = tx.Rollback()
				return fmt.Errorf("exec migration %s: %w", file.key, err)
			}
			if opts.CheckExisting == nil {
				_ = tx.Rollback()
				return fmt.Errorf("exec migration %s: %w: %v", file.key, ErrSchemaConflict, err)
			}
			if err := opts.CheckExisting(ctx, tx, file.key); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("exec migration %s: %w: %w", file.key, ErrSchemaConflict, err)
			}
		}

		if _, err := tx.ExecContext(
			ctx,
			fmt.Sprintf("INSERT OR IGNORE INTO %s (name, applied_at) VALUES (?, ?)", migrationTable),
			file.key,
			time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file.key, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file.key, err)
		}
	}

	return nil
}

// RevertMigrations runs the Down section of the most recently applied
// migrations under migrationRoot, newest first, and forgets them.
// steps <= 0 reverts every applied migration from this root.
func RevertMigrations(ctx context.Context, sqlDB *sql.DB, migrationFS fs.FS, migrationRoot string, steps int) error {
	if sqlDB == nil {
		return fmt.Errorf("sql db is required")
	}

	files, err := listMigrationFiles(migrationFS, migrationRoot)
	if err != nil {
		return err
	}
	if err := ensureMigrationTable(ctx, sqlDB); err != nil {
		return err
	}

	applied := make([]migrationFile, 0, len(files))
	for _, file := range files {
		ok, err := isApplied(ctx, sqlDB, file.key)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", file.key, err)
		}
		if ok {
			applied = append(applied, file)
		}
	}
	// newest first
	sort.Slice(applied, func(i, j int) bool { return applied[i].key > applied[j].key })
	if steps > 0 && steps < len(applied) {
		applied = applied[:steps]
	}

	for _, file := range applied {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := fs.ReadFile(migrationFS, file.path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file.key, err)
		}
		downSQL := ExtractDownMigration(string(content))
		if strings.TrimSpace(downSQL) == "" {
			return fmt.Errorf("revert migration %s: %w", file.key, ErrIrreversible)
		}

		tx, err := sqlDB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin revert transaction %s: %w", file.key, err)
		}
		if _, err := tx.ExecContext(ctx, downSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec revert %s: %w", file.key, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+migrationTable+" WHERE name = ?", file.key); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("forget migration %s: %w", file.key, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit revert %s: %w", file.key, err)
		}
	}

	return nil
}

// ListApplied returns recorded migrations ordered by name.
func ListApplied(ctx context.Context, sqlDB *sql.DB) ([]AppliedMigration, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	if err := ensureMigrationTable(ctx, sqlDB); err != nil {
		return nil, err
	}

	rows, err := sqlDB.QueryContext(ctx, "SELECT name, applied_at FROM "+migrationTable+" ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var name string
		var appliedAt int64
		if err := rows.Scan(&name, &appliedAt); err != nil {
			return nil, fmt.Errorf("list migrations: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Name:      name,
			AppliedAt: time.UnixMilli(appliedAt).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	return applied, nil
}

// ExtractUpMigration returns the SQL in the -- +migrate Up section.
func ExtractUpMigration(content string) string {
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, downMarker)
	if downIdx == -1 || downIdx < upIdx {
		return content[upIdx+len(upMarker):]
	}
	return content[upIdx+len(upMarker) : downIdx]
}

// ExtractDownMigration returns the SQL in the -- +migrate Down section, or
// the empty string when the file has none.
func ExtractDownMigration(content string) string {
	downIdx := strings.Index(content, downMarker)
	if downIdx == -1 {
		return ""
	}
	down := content[downIdx+len(downMarker):]
	if upIdx := strings.Index(down, upMarker); upIdx != -1 {
		down = down[:upIdx]
	}
	return down
}

// IsAlreadyExistsError reports whether the DDL failed because its object is already present.
func IsAlreadyExistsError(err error) bool {
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column name")
}

func listMigrationFiles(migrationFS fs.FS, migrationRoot string) ([]migrationFile, error) {
	root := strings.TrimSpace(migrationRoot)
	if root == "" {
		root = "."
	}
	keyRoot := root
	if keyRoot == "." {
		keyRoot = ""
	}

	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		key := entry.Name()
		if keyRoot != "" {
			key = filepath.ToSlash(filepath.Join(keyRoot, entry.Name()))
		}
		files = append(files, migrationFile{
			key:  key,
			path: filepath.ToSlash(filepath.Join(root, entry.Name())),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].key < files[j].key })
	return files, nil
}

func ensureMigrationTable(ctx context.Context, sqlDB *sql.DB) error {
	createSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`, migrationTable)
	if _, err := sqlDB.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func isApplied(ctx context.Context, sqlDB *sql.DB, name string) (bool, error) {
	var found int
	row := sqlDB.QueryRowContext(ctx, "SELECT 1 FROM "+migrationTable+" WHERE name = ?", name)
	err := row.Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
