// Package storage defines persistence contracts for photo records.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured indicates a store was used without an open database handle.
var ErrNotConfigured = errors.New("storage is not configured")

// Photo is one persisted row of the photos table. A nil Caption or Source
// is a NULL column.
type Photo struct {
	ID        int64
	Caption   *string
	Source    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPhoto carries the caller-supplied columns of a photo to insert.
// Source is an image URL and is stored as given. Either field may be nil,
// which stores NULL.
type NewPhoto struct {
	Caption *string `json:"caption"`
	Source  *string `json:"source"`
}

// Text returns a pointer to v, for populating optional photo columns.
func Text(v string) *string {
	return &v
}

// TextOrEmpty returns the value behind p, or "" when p is nil.
func TextOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// PhotoStore persists photo records.
type PhotoStore interface {
	// CreatePhoto inserts one photo and returns it with its assigned id and timestamps.
	CreatePhoto(ctx context.Context, photo NewPhoto) (Photo, error)
	// CreatePhotos inserts all photos in order inside one transaction.
	CreatePhotos(ctx context.Context, photos []NewPhoto) ([]Photo, error)
	ListPhotos(ctx context.Context) ([]Photo, error)
	CountPhotos(ctx context.Context) (int, error)
}

// BatchError reports which photo of a CreatePhotos call failed.
type BatchError struct {
	Index int
	Photo NewPhoto
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("create photo %d (%q): %v", e.Index, TextOrEmpty(e.Photo.Caption), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
