// Package store reads block definitions and tutorials from the places
// they are persisted: a SQL database or a directory of files.
package store

import (
	"context"
	"fmt"

	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/tutorial"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

// Store lists the block library and tutorials in display order
type Store interface {
	ListBlocks(ctx context.Context) ([]block.Record, error)
	ListTutorials(ctx context.Context) ([]*tutorial.Tutorial, error)
	Close() error
}

// Config selects and configures a store
type Config struct {
	// Driver is sqlite, postgres or file
	Driver string `mapstructure:"driver"`
	// DSN is the database connection string, or the library directory for
	// the file driver
	DSN string `mapstructure:"dsn"`
	// RequireLibrary is a semver constraint the file library must satisfy
	RequireLibrary string `mapstructure:"require_library"`
}

// Open creates the store described by cfg. SQL stores are migrated before
// they are returned.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
		s, err := OpenSQL(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case DriverFile, "":
		return NewFileStore(cfg.DSN, cfg.RequireLibrary)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
