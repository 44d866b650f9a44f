package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/gradflow/pkg/cmd"
	"github.com/dukex/gradflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "gradflow-audit"

func main() {
	command := &cli.Command{
		Name:  serviceName,
		Usage: "Write an audit log line for every workflow step",
		Flags: cmd.ConfigFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := cmd.LoadConfig(command)
			if err != nil {
				return err
			}

			logger := newLogger(os.Stderr, cfg.LogLevel)

			if cfg.EventBus != "kafka" {
				logger.WarnContext(ctx, "In-process event bus selected, only steps of this process would be audited", "event_bus", cfg.EventBus)
			}

			eventBus, err := cmd.NewEventBus(logger, cfg.EventBus, serviceName, cfg.KafkaBrokers)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return NewAuditor(logger, eventBus).Run(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger configures the process logger at level and returns the module logger built on it.
func newLogger(w io.Writer, level string) *slog.Logger {
	log.SetupWriter(w, level)

	return log.WithModule("audit")
}
