package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/photos/internal/services/photos/storage/sqlite"
)

// openSeedStoreWithDB returns a migrated store over a test-owned handle.
func openSeedStoreWithDB(t *testing.T) (*sqlite.Store, *sql.DB) {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})

	store := sqlite.New(sqlDB)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store, sqlDB
}

func rejectCaption(t *testing.T, sqlDB *sql.DB, caption string) {
	t.Helper()
	_, err := sqlDB.Exec(`CREATE TRIGGER reject_caption BEFORE INSERT ON photos
		WHEN NEW.caption = '`+strings.ReplaceAll(caption, "'", "''")+`'
		BEGIN SELECT RAISE(ABORT, 'caption rejected'); END;`)
	if err != nil {
		t.Fatalf("install reject trigger: %v", err)
	}
}
