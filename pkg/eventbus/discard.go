package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/gradflow/pkg/events"
)

// DiscardEventBus drops every published event. It backs the "none" provider.
type DiscardEventBus struct{}

func NewDiscardEventBus() *DiscardEventBus {
	return &DiscardEventBus{}
}

func (DiscardEventBus) Publish(context.Context, string, Event) error { return nil }

func (DiscardEventBus) Handle(events.EventType, EventHandler) error { return nil }

func (DiscardEventBus) Subscribe(context.Context) error { return nil }

func (DiscardEventBus) Close() error { return nil }

func (DiscardEventBus) GenerateID() string {
	return watermill.NewULID()
}
