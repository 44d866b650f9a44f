package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/gradflow/pkg/channels/gochannel"
	"github.com/dukex/gradflow/pkg/channels/kafka"
	"github.com/dukex/gradflow/pkg/eventbus"
)

// NewEventBus creates the step event bus for provider. serviceName names the Kafka consumer group.
func NewEventBus(logger *slog.Logger, provider, serviceName, kafkaBrokers string) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create GoChannel pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	case "kafka":
		brokers, err := kafka.Brokers(kafkaBrokers)
		if err != nil {
			return nil, err
		}

		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName, brokers)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	case "none":
		return eventbus.NewDiscardEventBus(), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider %q", provider)
	}
}
