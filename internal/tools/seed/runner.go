// Package seed writes the fixed photo dataset into a photo store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/louisbranch/photos/internal/platform/errors"
	"github.com/louisbranch/photos/internal/platform/otel"
	"github.com/louisbranch/photos/internal/services/photos/storage"
)

// Config holds seed runner configuration.
type Config struct {
	// Passes is how many times the fixture is inserted. Rows are never
	// deduplicated, so each pass appends a full copy.
	Passes int
	// Atomic inserts each pass in one transaction. When false, photos are
	// inserted one at a time and rows written before a failure remain.
	Atomic  bool
	Verbose bool
}

// DefaultConfig returns configuration with common defaults.
func DefaultConfig() Config {
	return Config{
		Passes: 1,
		Atomic: true,
	}
}

// Result summarizes a seed run.
type Result struct {
	Passes   int
	Inserted []storage.Photo
}

// Run inserts fixture.Photos into store cfg.Passes times, in order.
// The first failure stops the run; there are no retries.
func Run(ctx context.Context, store storage.PhotoStore, fixture Fixture, cfg Config, out io.Writer) (result Result, err error) {
	if store == nil {
		return Result{}, apperrors.New(apperrors.CodeStoreUnavailable, "photo store is required")
	}
	if len(fixture.Photos) == 0 {
		return Result{}, apperrors.New(apperrors.CodeFixtureInvalid, "fixture has no photos")
	}
	if cfg.Passes <= 0 {
		return Result{}, fmt.Errorf("passes must be greater than zero, got %d", cfg.Passes)
	}
	if out == nil {
		out = io.Discard
	}

	ctx, span := otel.StartSpan(ctx, "seed.run",
		attribute.String("seed.fixture", fixture.Name),
		attribute.Int("seed.passes", cfg.Passes),
		attribute.Bool("seed.atomic", cfg.Atomic),
	)
	defer func() { otel.EndSpan(span, err) }()

	if cfg.Verbose {
		fmt.Fprintf(out, "Loaded fixture %s with %d photo(s)\n", fixture.Name, len(fixture.Photos))
	}

	for pass := 1; pass <= cfg.Passes; pass++ {
		inserted, err := runPass(ctx, store, fixture.Photos, pass, cfg.Atomic)
		result.Inserted = append(result.Inserted, inserted...)
		if err != nil {
			return result, err
		}
		result.Passes = pass
		if cfg.Verbose {
			fmt.Fprintf(out, "Pass %d/%d: inserted %d photo(s)\n", pass, cfg.Passes, len(inserted))
		}
	}

	if cfg.Verbose {
		fmt.Fprintf(out, "Seeding complete: %d photo(s)\n", len(result.Inserted))
	}
	return result, nil
}

func runPass(ctx context.Context, store storage.PhotoStore, photos []storage.NewPhoto, pass int, atomic bool) (inserted []storage.Photo, err error) {
	ctx, span := otel.StartSpan(ctx, "seed.pass",
		attribute.Int("seed.pass", pass),
		attribute.Int("seed.photos", len(photos)),
	)
	defer func() { otel.EndSpan(span, err) }()

	if atomic {
		created, err := store.CreatePhotos(ctx, photos)
		if err != nil {
			index := -1
			var batchErr *storage.BatchError
			if errors.As(err, &batchErr) {
				index = batchErr.Index
			}
			return nil, insertionError(photos, index, pass, err)
		}
		return created, nil
	}

	inserted = make([]storage.Photo, 0, len(photos))
	for i, photo := range photos {
		if err := ctx.Err(); err != nil {
			return inserted, insertionError(photos, i, pass, err)
		}
		created, err := store.CreatePhoto(ctx, photo)
		if err != nil {
			return inserted, insertionError(photos, i, pass, err)
		}
		inserted = append(inserted, created)
	}
	return inserted, nil
}

func insertionError(photos []storage.NewPhoto, index int, pass int, cause error) error {
	metadata := map[string]string{
		"pass": strconv.Itoa(pass),
	}
	message := fmt.Sprintf("seed pass %d", pass)
	if index >= 0 && index < len(photos) {
		metadata["index"] = strconv.Itoa(index)
		caption := storage.TextOrEmpty(photos[index].Caption)
		metadata["caption"] = caption
		message = fmt.Sprintf("insert photo %q (pass %d)", caption, pass)
	}
	return apperrors.WrapWithMetadata(apperrors.CodeInsertion, message, metadata, cause)
}
