// Package main provides the step audit log subscriber.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/gradflow/pkg/eventbus"
	"github.com/dukex/gradflow/pkg/events"
)

// Auditor writes every recorded workflow step as a structured log line.
type Auditor struct {
	logger *slog.Logger
	bus    eventbus.EventSubscriber
}

func NewAuditor(logger *slog.Logger, bus eventbus.EventSubscriber) *Auditor {
	return &Auditor{
		logger: logger.With("module", "audit"),
		bus:    bus,
	}
}

// Run subscribes to step events and blocks until ctx is cancelled.
func (a *Auditor) Run(ctx context.Context) error {
	err := a.bus.Handle(events.StepRecordedEvent, a.handleStepRecorded)
	if err != nil {
		return fmt.Errorf("failed to register step handler: %w", err)
	}

	err = a.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to step events: %w", err)
	}

	a.logger.InfoContext(ctx, "Listening for step events", "topic", events.Topic)

	<-ctx.Done()
	a.logger.Info("Audit context cancelled, stopping...")

	return nil
}

func (a *Auditor) handleStepRecorded(ctx context.Context, event any) error {
	step, ok := event.(*events.StepRecorded)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	if err := step.Validate(); err != nil {
		a.logger.WarnContext(ctx, "Dropping invalid step event", "event_id", step.ID, "error", err)

		return nil
	}

	a.logger.InfoContext(ctx, "Workflow step recorded",
		"event_id", step.ID,
		"record_id", step.RecordID,
		"step_id", step.StepID,
		"title", step.Title,
		"action_key", step.ActionKey,
		"action_name", step.ActionName,
		"from", step.FromState,
		"next", step.NextState,
		"operator_id", step.OperatorID,
		"operator_name", step.OperatorName,
		"at", step.Timestamp,
	)

	return nil
}
