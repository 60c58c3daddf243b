package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	sqlitemigrate "github.com/louisbranch/photos/internal/platform/storage/sqlitemigrate"
)

var wantPhotoColumns = []Column{
	{Name: "id", Type: "INTEGER", PrimaryKey: true},
	{Name: "caption", Type: "TEXT"},
	{Name: "source", Type: "TEXT"},
	{Name: "created_at", Type: "TIMESTAMP", NotNull: true},
	{Name: "updated_at", Type: "TIMESTAMP", NotNull: true},
}

func TestMigrateCreatesPhotosTable(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	columns, err := store.TableColumns(context.Background(), "photos")
	if err != nil {
		t.Fatalf("table columns: %v", err)
	}
	if !reflect.DeepEqual(columns, wantPhotoColumns) {
		t.Fatalf("columns = %+v, want %+v", columns, wantPhotoColumns)
	}
}

func TestMigrateRejectsIncompatiblePhotosTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openBareStore(t)
	if _, err := store.sqlDB.Exec("CREATE TABLE photos (id INTEGER PRIMARY KEY, title TEXT)"); err != nil {
		t.Fatalf("pre-create photos: %v", err)
	}

	err := store.Migrate(ctx)
	if !errors.Is(err, sqlitemigrate.ErrSchemaConflict) {
		t.Fatalf("expected schema conflict, got %v", err)
	}
	applied, err := store.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("applied migrations: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing recorded, got %+v", applied)
	}
	columns, err := store.TableColumns(ctx, "photos")
	if err != nil {
		t.Fatalf("table columns: %v", err)
	}
	if len(columns) != 2 || columns[1].Name != "title" {
		t.Fatalf("expected existing table untouched, got %+v", columns)
	}
}

func TestMigrateRejectsPhotosTableWithoutAutoincrement(t *testing.T) {
	t.Parallel()

	store := openBareStore(t)
	if _, err := store.sqlDB.Exec(`CREATE TABLE photos (
		id INTEGER PRIMARY KEY,
		caption TEXT,
		source TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`); err != nil {
		t.Fatalf("pre-create photos: %v", err)
	}

	if err := store.Migrate(context.Background()); !errors.Is(err, sqlitemigrate.ErrSchemaConflict) {
		t.Fatalf("expected schema conflict, got %v", err)
	}
}

func TestMigrateAcceptsMatchingPhotosTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openBareStore(t)
	if _, err := store.sqlDB.Exec(`CREATE TABLE photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		caption TEXT,
		source TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`); err != nil {
		t.Fatalf("pre-create photos: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate over matching table: %v", err)
	}
	applied, err := store.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("applied migrations: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied migration, got %d", len(applied))
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	applied, err := store.AppliedMigrations(context.Background())
	if err != nil {
		t.Fatalf("applied migrations: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied migration, got %d", len(applied))
	}
	if applied[0].Name != "20150225200255_create_photos.sql" {
		t.Fatalf("unexpected migration name %q", applied[0].Name)
	}
}

func TestRevertDropsPhotosTable(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.Revert(context.Background(), 0); err != nil {
		t.Fatalf("revert: %v", err)
	}

	columns, err := store.TableColumns(context.Background(), "photos")
	if err != nil {
		t.Fatalf("table columns: %v", err)
	}
	if len(columns) != 0 {
		t.Fatalf("expected photos table to be gone, got %+v", columns)
	}
	applied, err := store.AppliedMigrations(context.Background())
	if err != nil {
		t.Fatalf("applied migrations: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected no applied migrations, got %+v", applied)
	}
}

func TestApplyRevertApplyRestoresStructure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	first, err := store.TableColumns(ctx, "photos")
	if err != nil {
		t.Fatalf("table columns: %v", err)
	}

	if err := store.Revert(ctx, 0); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("re-apply: %v", err)
	}

	second, err := store.TableColumns(ctx, "photos")
	if err != nil {
		t.Fatalf("table columns: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("structure changed: first %+v, second %+v", first, second)
	}
}

func TestRevertClearsRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	if _, err := store.CreatePhotos(ctx, samplePhotos()); err != nil {
		t.Fatalf("create photos: %v", err)
	}
	if err := store.Revert(ctx, 0); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("re-apply: %v", err)
	}

	count, err := store.CountPhotos(ctx)
	if err != nil {
		t.Fatalf("count photos: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty table after revert and re-apply, got %d rows", count)
	}
}

func TestSchemaOperationsRequireHandle(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.Migrate(context.Background()); err == nil {
		t.Fatal("expected migrate on nil store to fail")
	}
	if err := store.Revert(context.Background(), 0); err == nil {
		t.Fatal("expected revert on nil store to fail")
	}
	if _, err := store.TableColumns(context.Background(), "photos"); err == nil {
		t.Fatal("expected table columns on nil store to fail")
	}
}

func openBareStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "bare.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
