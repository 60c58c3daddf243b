// Package sqlite provides a SQLite-backed photo storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/photos/internal/platform/timeouts"
	"github.com/louisbranch/photos/internal/services/photos/storage"
	_ "modernc.org/sqlite"
)

var dsnPragmas = fmt.Sprintf(
	"?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
	timeouts.SQLiteBusy.Milliseconds(),
)

// Store persists photo rows in SQLite.
type Store struct {
	sqlDB *sql.DB
	owned bool
	now   func() time.Time
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open opens a SQLite photo store at path. The schema is not applied here;
// call Migrate or run the migrate command first.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	// the driver splits the DSN at the first '?'
	if strings.ContainsAny(path, "?#") {
		return nil, fmt.Errorf("storage path %q must not contain '?' or '#'", path)
	}
	sqlDB, err := sql.Open("sqlite", filepath.Clean(path)+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	store := New(sqlDB)
	store.owned = true
	return store, nil
}

// New wraps a caller-owned handle. Close on the returned store leaves the
// handle open.
func New(sqlDB *sql.DB) *Store {
	return &Store{
		sqlDB: sqlDB,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the SQLite handle when the store opened it.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil || !s.owned {
		return nil
	}
	return s.sqlDB.Close()
}

// CreatePhoto inserts one photo row.
func (s *Store) CreatePhoto(ctx context.Context, photo storage.NewPhoto) (storage.Photo, error) {
	if err := ctx.Err(); err != nil {
		return storage.Photo{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Photo{}, storage.ErrNotConfigured
	}
	created, err := s.insertPhoto(ctx, s.sqlDB, photo)
	if err != nil {
		return storage.Photo{}, fmt.Errorf("create photo: %w", err)
	}
	return created, nil
}

// CreatePhotos inserts photos in order inside one transaction. Either all
// rows are persisted or none are.
func (s *Store) CreatePhotos(ctx context.Context, photos []storage.NewPhoto) ([]storage.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrNotConfigured
	}
	if len(photos) == 0 {
		return nil, nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create photos: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := make([]storage.Photo, 0, len(photos))
	for i, photo := range photos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := s.insertPhoto(ctx, tx, photo)
		if err != nil {
			return nil, &storage.BatchError{Index: i, Photo: photo, Err: err}
		}
		created = append(created, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create photos: %w", err)
	}
	return created, nil
}

// ListPhotos returns every photo ordered by id.
func (s *Store) ListPhotos(ctx context.Context) ([]storage.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrNotConfigured
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, caption, source, created_at, updated_at
		   FROM photos
		  ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []storage.Photo
	for rows.Next() {
		var (
			photo     storage.Photo
			caption   sql.NullString
			source    sql.NullString
			createdAt any
			updatedAt any
		)
		if err := rows.Scan(&photo.ID, &caption, &source, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("list photos: %w", err)
		}
		photo.Caption = nullableString(caption)
		photo.Source = nullableString(source)
		if photo.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("list photos: created_at: %w", err)
		}
		if photo.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
			return nil, fmt.Errorf("list photos: updated_at: %w", err)
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return photos, nil
}

// CountPhotos returns the number of photo rows.
func (s *Store) CountPhotos(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, storage.ErrNotConfigured
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos").Scan(&count); err != nil {
		return 0, fmt.Errorf("count photos: %w", err)
	}
	return count, nil
}

func (s *Store) insertPhoto(ctx context.Context, db execer, photo storage.NewPhoto) (storage.Photo, error) {
	// one instant per row keeps created_at and updated_at identical
	now := s.now()
	res, err := db.ExecContext(
		ctx,
		`INSERT INTO photos (caption, source, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		nullString(photo.Caption),
		nullString(photo.Source),
		formatTimestamp(now),
		formatTimestamp(now),
	)
	if err != nil {
		return storage.Photo{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storage.Photo{}, fmt.Errorf("read photo id: %w", err)
	}
	return storage.Photo{
		ID:        id,
		Caption:   photo.Caption,
		Source:    photo.Source,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

var _ storage.PhotoStore = (*Store)(nil)
