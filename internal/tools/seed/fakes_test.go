package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/photos/internal/services/photos/storage"
)

// fakePhotoStore records inserts and fails on a chosen caption.
type fakePhotoStore struct {
	failCaption string
	failErr     error
	rows        []storage.Photo
	batchCalls  int
	singleCalls int
}

func (f *fakePhotoStore) CreatePhoto(_ context.Context, photo storage.NewPhoto) (storage.Photo, error) {
	f.singleCalls++
	if storage.TextOrEmpty(photo.Caption) == f.failCaption {
		return storage.Photo{}, f.err()
	}
	return f.append(photo), nil
}

func (f *fakePhotoStore) CreatePhotos(_ context.Context, photos []storage.NewPhoto) ([]storage.Photo, error) {
	f.batchCalls++
	for i, photo := range photos {
		if storage.TextOrEmpty(photo.Caption) == f.failCaption {
			return nil, &storage.BatchError{Index: i, Photo: photo, Err: f.err()}
		}
	}
	created := make([]storage.Photo, 0, len(photos))
	for _, photo := range photos {
		created = append(created, f.append(photo))
	}
	return created, nil
}

func (f *fakePhotoStore) ListPhotos(context.Context) ([]storage.Photo, error) {
	return append([]storage.Photo(nil), f.rows...), nil
}

func (f *fakePhotoStore) CountPhotos(context.Context) (int, error) {
	return len(f.rows), nil
}

func (f *fakePhotoStore) append(photo storage.NewPhoto) storage.Photo {
	now := time.Date(2015, time.February, 25, 20, 2, 55, 0, time.UTC)
	row := storage.Photo{
		ID:        int64(len(f.rows) + 1),
		Caption:   photo.Caption,
		Source:    photo.Source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.rows = append(f.rows, row)
	return row
}

func (f *fakePhotoStore) err() error {
	if f.failErr != nil {
		return f.failErr
	}
	return fmt.Errorf("constraint failed")
}
