// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dukex/gradflow/pkg/persistence"
	"github.com/dukex/gradflow/pkg/persistence/file"
	"github.com/dukex/gradflow/pkg/persistence/postgresql"
	"github.com/xo/dburl"
)

// NewPersistence opens the store named by databaseURL: file://<dir> or any
// PostgreSQL URL dburl understands (postgres://, postgresql://, pg://).
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	if root, ok := strings.CutPrefix(databaseURL, "file://"); ok {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}

		logger.InfoContext(ctx, "Using file persistence", "root", root)

		return file.NewPersistence(root), nil
	}

	dbURL, err := dburl.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse database url: %w", err)
	}

	if dbURL.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported persistence driver %q", dbURL.Driver)
	}

	logger.InfoContext(ctx, "Using PostgreSQL persistence", "database", dbURL.Redacted())

	postgres, err := postgresql.NewPersistence(ctx, logger, dbURL.DSN)
	if err != nil {
		return nil, err
	}

	return postgres, nil
}
