// Package migrate parses migrate command flags and applies or reverts the
// photos schema.
package migrate

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/photos/internal/platform/cmd"
	apperrors "github.com/louisbranch/photos/internal/platform/errors"
	"github.com/louisbranch/photos/internal/platform/timeouts"
	"github.com/louisbranch/photos/internal/services/photos/storage/sqlite"
)

// Action selects what the migrate command does.
type Action string

const (
	ActionUp     Action = "up"
	ActionDown   Action = "down"
	ActionStatus Action = "status"
)

// Config holds migrate command configuration.
type Config struct {
	DBPath  string        `env:"PHOTOS_DB_PATH" envDefault:"data/photos.db"`
	Timeout time.Duration `env:"PHOTOS_COMMAND_TIMEOUT"`
	Steps   int
	Action  Action
}

// ParseConfig parses environment, flags, and the action argument into Config.
// A nil environ reads the process environment.
func ParseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfigWithEnv(&cfg, environ); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database")
	fs.IntVar(&cfg.Steps, "steps", 0, "migrations to revert with down (0 = all)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "maximum run time")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	cfg.DBPath = strings.TrimSpace(cfg.DBPath)
	if cfg.DBPath == "" {
		return Config{}, fmt.Errorf("database path is required")
	}

	action, err := parseAction(fs.Args())
	if err != nil {
		return Config{}, err
	}
	cfg.Action = action
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.Command
	}
	return cfg, nil
}

// Run executes the migrate command.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMigrate, func(ctx context.Context) error {
		if cfg.Action == ActionUp {
			if dir := filepath.Dir(cfg.DBPath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return apperrors.Wrap(apperrors.CodeStoreUnavailable, "create database directory", err)
				}
			}
		}

		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeStoreUnavailable, "open photo store", err)
		}
		defer store.Close()

		switch cfg.Action {
		case ActionUp:
			if err := store.Migrate(ctx); err != nil {
				return apperrors.Wrap(apperrors.CodeSchemaApply, "apply photos schema", err)
			}
			fmt.Fprintf(out, "Schema applied to %s\n", cfg.DBPath)
			return nil
		case ActionDown:
			if err := store.Revert(ctx, cfg.Steps); err != nil {
				return apperrors.Wrap(apperrors.CodeSchemaRevert, "revert photos schema", err)
			}
			fmt.Fprintf(out, "Schema reverted in %s\n", cfg.DBPath)
			return nil
		case ActionStatus:
			return printStatus(ctx, store, out)
		default:
			return fmt.Errorf("unknown action %q", cfg.Action)
		}
	})
}

func printStatus(ctx context.Context, store *sqlite.Store, out io.Writer) error {
	applied, err := store.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Applied migrations:")
	if len(applied) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, migration := range applied {
		fmt.Fprintf(out, "  %s\t%s\n", migration.Name, migration.AppliedAt.Format("2006-01-02 15:04:05"))
	}

	columns, err := store.TableColumns(ctx, "photos")
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		fmt.Fprintln(out, "Table photos: absent")
		return nil
	}
	fmt.Fprintln(out, "Table photos:")
	for _, column := range columns {
		nullability := "null"
		if column.NotNull {
			nullability = "not null"
		}
		if column.PrimaryKey {
			nullability = "primary key"
		}
		fmt.Fprintf(out, "  %s\t%s\t%s\n", column.Name, column.Type, nullability)
	}
	return nil
}

func parseAction(args []string) (Action, error) {
	if len(args) == 0 {
		return ActionUp, nil
	}
	if len(args) > 1 {
		return "", fmt.Errorf("expected one action, got %d", len(args))
	}
	switch action := Action(strings.ToLower(args[0])); action {
	case ActionUp, ActionDown, ActionStatus:
		return action, nil
	default:
		return "", fmt.Errorf("unknown action %q (valid actions: up, down, status)", args[0])
	}
}
