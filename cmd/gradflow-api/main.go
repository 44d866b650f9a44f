package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dukex/gradflow/pkg/cmd"
	"github.com/dukex/gradflow/pkg/log"
	"github.com/dukex/gradflow/pkg/otelhelper"
	"github.com/dukex/gradflow/pkg/rules"
	"github.com/dukex/gradflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "gradflow-api"

func main() {
	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Serve the graduate design approval workflow",
		EnableShellCompletion: true,
		Flags:                 cmd.ConfigFlags(),
		Commands: []*cli.Command{
			ValidateRulesCommand(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := cmd.LoadConfig(command)
			if err != nil {
				return err
			}

			logger := newLogger(os.Stderr, cfg.LogLevel)

			logger.InfoContext(ctx, "Initializing gradflow API")

			table, err := rules.FromPath(cfg.RulesFile)
			if err != nil {
				return fmt.Errorf("failed to load rule table: %w", err)
			}

			mode, err := workflow.ParseFieldValidationMode(cfg.FieldValidation)
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, cfg.DatabaseURL)
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			directory, err := cmd.NewDirectory(ctx, logger, cfg.UserDirectory)
			if err != nil {
				return err
			}

			defer func() {
				if err := directory.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close user directory", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(logger, cfg.EventBus, serviceName, cfg.KafkaBrokers)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tracer := otelhelper.NoopTracer()

			if cfg.Tracing {
				var shutdown otelhelper.ShutdownFunc

				tracer, shutdown, err = otelhelper.NewTracer(ctx, serviceName)
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.WithoutCancel(ctx)); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			engine := workflow.NewEngine(table, persistence,
				workflow.WithLogger(logger),
				workflow.WithPublisher(eventBus),
				workflow.WithTracer(tracer),
				workflow.WithFieldValidation(mode),
			)

			api := NewAPI(logger, engine, directory, cfg.IdentityHeader)

			err = api.Start(ctx, cfg.Port)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
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

	return log.WithModule("api")
}
