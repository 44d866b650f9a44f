// Package events defines the notifications emitted when a workflow record changes.
package events

import (
	"errors"
	"time"

	"github.com/dukex/gradflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every workflow step event.
const Topic = "gradflow.steps"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	StepRecordedEvent EventType = "workflow.step.recorded"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RecordID  int64          `json:"record_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// StepRecorded is published after a step has been committed.
type StepRecorded struct {
	BaseEvent

	StepID       int64  `json:"step_id"`
	ActionKey    string `json:"action_key"`
	ActionName   string `json:"action_name"`
	FromState    string `json:"from_state"`
	NextState    string `json:"next_state"`
	OperatorID   int64  `json:"operator_id"`
	OperatorName string `json:"operator_name"`
	Title        string `json:"title"`
}

func (s StepRecorded) GetType() EventType {
	return StepRecordedEvent
}

// Validate checks that the event identifies a stored step.
func (s *StepRecorded) Validate() error {
	var errs []error

	if s.RecordID <= 0 {
		errs = append(errs, errors.New("record_id is required"))
	}

	if s.StepID <= 0 {
		errs = append(errs, errors.New("step_id is required"))
	}

	if s.ActionKey == "" {
		errs = append(errs, errors.New("action_key is required"))
	}

	return errors.Join(errs...)
}

func NewBaseEvent(eventType EventType, recordID int64) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RecordID:  recordID,
		Metadata:  make(map[string]any),
	}
}

// NewStepRecorded builds the event for a committed step of record.
func NewStepRecorded(record *models.Record, step *models.Step) *StepRecorded {
	base := NewBaseEvent(StepRecordedEvent, record.ID)
	if !step.CreatedAt.IsZero() {
		base.Timestamp = step.CreatedAt.UTC()
	}

	return &StepRecorded{
		BaseEvent:    base,
		StepID:       step.ID,
		ActionKey:    step.ActionKey,
		ActionName:   step.ActionName,
		FromState:    step.FromState,
		NextState:    step.NextState,
		OperatorID:   step.OperatorID,
		OperatorName: step.OperatorName,
		Title:        record.Title,
	}
}
