package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/gradflow/pkg/directory"
)

// NewDirectory opens the user directory named by url.
func NewDirectory(ctx context.Context, logger *slog.Logger, url string) (directory.Directory, error) {
	dir, err := directory.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open user directory: %w", err)
	}

	logger.InfoContext(ctx, "User directory ready", "type", fmt.Sprintf("%T", dir))

	return dir, nil
}
