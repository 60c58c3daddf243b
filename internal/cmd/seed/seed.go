// Package seed parses seed command flags and writes the photo fixture.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/photos/internal/platform/cmd"
	apperrors "github.com/louisbranch/photos/internal/platform/errors"
	"github.com/louisbranch/photos/internal/platform/timeouts"
	"github.com/louisbranch/photos/internal/services/photos/storage"
	"github.com/louisbranch/photos/internal/services/photos/storage/sqlite"
	"github.com/louisbranch/photos/internal/tools/seed"
)

// Config holds seed command configuration.
type Config struct {
	DBPath      string        `env:"PHOTOS_DB_PATH" envDefault:"data/photos.db"`
	Passes      int           `env:"PHOTOS_SEED_PASSES" envDefault:"1"`
	Atomic      bool          `env:"PHOTOS_SEED_ATOMIC" envDefault:"true"`
	FixturePath string        `env:"PHOTOS_SEED_FIXTURE"`
	Timeout     time.Duration `env:"PHOTOS_COMMAND_TIMEOUT"`
	List        bool
	Verbose     bool
}

// ParseConfig parses environment and flags into Config. A nil environ
// reads the process environment.
func ParseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfigWithEnv(&cfg, environ); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database")
	fs.IntVar(&cfg.Passes, "passes", cfg.Passes, "number of times the fixture is inserted")
	fs.BoolVar(&cfg.Atomic, "atomic", cfg.Atomic, "insert each pass in one transaction")
	fs.StringVar(&cfg.FixturePath, "fixture", cfg.FixturePath, "JSON fixture file (default: embedded photos)")
	fs.BoolVar(&cfg.List, "list", false, "print the fixture and exit")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "maximum run time")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	cfg.DBPath = strings.TrimSpace(cfg.DBPath)
	if cfg.DBPath == "" {
		return Config{}, fmt.Errorf("database path is required")
	}
	if cfg.Passes <= 0 {
		return Config{}, fmt.Errorf("passes must be greater than zero, got %d", cfg.Passes)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.Command
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	fixture, err := loadFixture(cfg.FixturePath)
	if err != nil {
		return err
	}

	if cfg.List {
		fmt.Fprintf(out, "Fixture %s:\n", fixture.Name)
		for i, photo := range fixture.Photos {
			fmt.Fprintf(out, "  %d. %s\t%s\n", i+1, storage.TextOrEmpty(photo.Caption), storage.TextOrEmpty(photo.Source))
		}
		return nil
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeStoreUnavailable, "open photo store", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				fmt.Fprintf(errOut, "close photo store: %v\n", err)
			}
		}()

		result, err := seed.Run(ctx, store, fixture, seed.Config{
			Passes:  cfg.Passes,
			Atomic:  cfg.Atomic,
			Verbose: cfg.Verbose,
		}, errOut)
		if err != nil {
			return err
		}
		if cfg.Verbose {
			fmt.Fprintf(out, "Seeded %d photo(s) into %s\n", len(result.Inserted), cfg.DBPath)
		}
		return nil
	})
}

func loadFixture(path string) (seed.Fixture, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return seed.DefaultFixture()
	}
	return seed.LoadFixtureFile(path)
}
