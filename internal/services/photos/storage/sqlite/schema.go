package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlitemigrate "github.com/louisbranch/photos/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/photos/internal/services/photos/storage"
	"github.com/louisbranch/photos/internal/services/photos/storage/sqlite/migrations"
)

// Column describes one column of a table as reported by SQLite.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

type tableShape struct {
	table         string
	columns       []Column
	autoIncrement bool
}

// migrationShapes lists the table each migration creates, keyed by file name.
var migrationShapes = map[string]tableShape{
	"20150225200255_create_photos.sql": {
		table: "photos",
		columns: []Column{
			{Name: "id", Type: "INTEGER", PrimaryKey: true},
			{Name: "caption", Type: "TEXT"},
			{Name: "source", Type: "TEXT"},
			{Name: "created_at", Type: "TIMESTAMP", NotNull: true},
			{Name: "updated_at", Type: "TIMESTAMP", NotNull: true},
		},
		autoIncrement: true,
	},
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Migrate applies the embedded photo migrations. Re-running is a no-op. A
// photos table created elsewhere is accepted only when its structure matches;
// otherwise the error wraps sqlitemigrate.ErrSchemaConflict.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return storage.ErrNotConfigured
	}
	return sqlitemigrate.ApplyMigrationsWithOptions(ctx, s.sqlDB, migrations.FS, "", sqlitemigrate.ApplyOptions{
		CheckExisting: checkExistingShape,
	})
}

func checkExistingShape(ctx context.Context, tx *sql.Tx, key string) error {
	shape, ok := migrationShapes[key]
	if !ok {
		return fmt.Errorf("no known structure for %s", key)
	}
	columns, err := tableColumns(ctx, tx, shape.table)
	if err != nil {
		return err
	}
	if !sameColumns(columns, shape.columns) {
		return fmt.Errorf("table %s has columns %v, want %v", shape.table, columns, shape.columns)
	}
	if shape.autoIncrement {
		var ddl string
		row := tx.QueryRowContext(ctx, "SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", shape.table)
		if err := row.Scan(&ddl); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("table %s is not a table", shape.table)
			}
			return fmt.Errorf("read %s definition: %w", shape.table, err)
		}
		if !strings.Contains(strings.ToUpper(ddl), "AUTOINCREMENT") {
			return fmt.Errorf("table %s ids are not AUTOINCREMENT", shape.table)
		}
	}
	return nil
}

func sameColumns(got, want []Column) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if !strings.EqualFold(got[i].Name, want[i].Name) ||
			!strings.EqualFold(got[i].Type, want[i].Type) ||
			got[i].NotNull != want[i].NotNull ||
			got[i].PrimaryKey != want[i].PrimaryKey {
			return false
		}
	}
	return true
}

// Revert undoes the last steps photo migrations; steps <= 0 undoes all.
func (s *Store) Revert(ctx context.Context, steps int) error {
	if s == nil || s.sqlDB == nil {
		return storage.ErrNotConfigured
	}
	return sqlitemigrate.RevertMigrations(ctx, s.sqlDB, migrations.FS, "", steps)
}

// AppliedMigrations lists recorded migrations.
func (s *Store) AppliedMigrations(ctx context.Context) ([]sqlitemigrate.AppliedMigration, error) {
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrNotConfigured
	}
	return sqlitemigrate.ListApplied(ctx, s.sqlDB)
}

// TableColumns returns the columns of table in declaration order. A missing
// table yields no columns.
func (s *Store) TableColumns(ctx context.Context, table string) ([]Column, error) {
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrNotConfigured
	}
	return tableColumns(ctx, s.sqlDB, table)
}

func tableColumns(ctx context.Context, db queryer, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, type, \"notnull\", pk FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			column  Column
			notNull int
			pk      int
		)
		if err := rows.Scan(&column.Name, &column.Type, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("table info %s: %w", table, err)
		}
		column.NotNull = notNull != 0
		column.PrimaryKey = pk != 0
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	return columns, nil
}
