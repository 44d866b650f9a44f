package cmd

import (
	"github.com/dukex/gradflow/pkg/config"
	"github.com/urfave/cli/v3"
)

// ConfigFlags are the flags shared by the gradflow binaries. They carry no default
// values so unset flags fall through to the environment and the config file.
func ConfigFlags() []cli.Flag {
	env := func(key string) cli.ValueSourceChain {
		return cli.EnvVars(config.EnvPrefix + "_" + key)
	}

	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML config file",
			Sources: env("CONFIG"),
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on (default 9091)",
			Sources: env("PORT"),
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Database connection URL for persistence (file://<dir> or postgres://...)",
			Sources: env("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "user-directory",
			Usage:   "User directory URL (file://<users.yaml> or redis://host:port/db)",
			Sources: env("USER_DIRECTORY"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Step event bus (gochannel, kafka, none)",
			Sources: env("EVENT_BUS"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers, KAFKA_BROKERS when empty",
			Sources: env("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "rules-file",
			Usage:   "Rule table YAML file, the built-in graduate design table when empty",
			Sources: env("RULES_FILE"),
		},
		&cli.StringFlag{
			Name:    "field-validation",
			Usage:   "Submission field validation (enforce, off)",
			Sources: env("FIELD_VALIDATION"),
		},
		&cli.StringFlag{
			Name:    "identity-header",
			Usage:   "Header carrying the authenticated user ID",
			Sources: env("IDENTITY_HEADER"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: env("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: env("TRACING"),
		},
	}
}

// LoadConfig resolves the configuration of command. Flags set on the command line
// or through their environment variable override the config file.
func LoadConfig(command *cli.Command) (*config.Config, error) {
	overrides := make(map[string]any)

	for _, key := range config.Keys() {
		name := config.FlagName(key)
		if command.IsSet(name) {
			overrides[key] = command.Value(name)
		}
	}

	return config.Load(command.String("config"), overrides)
}
