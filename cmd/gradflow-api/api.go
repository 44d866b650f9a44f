// Package main provides the gradflow API server.
package main

import (
	"context"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dukex/gradflow/pkg/directory"
	"github.com/dukex/gradflow/pkg/web"
	"github.com/dukex/gradflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger         *slog.Logger
	engine         *workflow.Engine
	directory      directory.Directory
	identityHeader string
	validate       *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	engine *workflow.Engine,
	directory directory.Directory,
	identityHeader string,
) *API {
	return &API{
		logger:         logger,
		engine:         engine,
		directory:      directory,
		identityHeader: identityHeader,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.engine, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("gradflow API")
	})

	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/api", web.Identity(a.directory, a.identityHeader, a.logger))
	api.Get("/wf_graduatedesign", handlers.GraduateDesign)
	api.Post("/wf_graduatedesign", handlers.GraduateDesign)
	api.Get("/wf_graduatedesign/rules", handlers.Rules)

	return app
}

// Start serves until ctx is cancelled or the process receives SIGINT or SIGTERM.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		a.logger.Info("Shutting down gracefully...")

		if err := app.Shutdown(); err != nil {
			a.logger.Error("Failed to shut down API server", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
