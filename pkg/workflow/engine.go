// Package workflow runs the graduate-design approval process: it decides which actions
// a user may take on a record, executes them and answers queries over records and steps.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/gradflow/pkg/eventbus"
	"github.com/dukex/gradflow/pkg/events"
	"github.com/dukex/gradflow/pkg/models"
	"github.com/dukex/gradflow/pkg/otelhelper"
	"github.com/dukex/gradflow/pkg/permission"
	"github.com/dukex/gradflow/pkg/persistence"
	"github.com/dukex/gradflow/pkg/rules"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FieldValidationMode selects whether submissions are checked against their field rules.
type FieldValidationMode string

const (
	FieldValidationEnforce FieldValidationMode = "enforce"
	FieldValidationOff     FieldValidationMode = "off"
)

// ParseFieldValidationMode parses a mode name. The empty string means enforce.
func ParseFieldValidationMode(name string) (FieldValidationMode, error) {
	switch FieldValidationMode(strings.ToLower(strings.TrimSpace(name))) {
	case "", FieldValidationEnforce:
		return FieldValidationEnforce, nil
	case FieldValidationOff:
		return FieldValidationOff, nil
	default:
		return "", fmt.Errorf("unknown field validation mode %q", name)
	}
}

// Engine executes workflow actions against the record store.
type Engine struct {
	table           *rules.Table
	persistence     persistence.Persistence
	records         persistence.RecordRepository
	logger          *slog.Logger
	publisher       eventbus.EventPublisher
	tracer          trace.Tracer
	fieldValidation FieldValidationMode
	now             func() time.Time
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPublisher sets where step events go after each committed action.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func WithFieldValidation(mode FieldValidationMode) Option {
	return func(e *Engine) {
		e.fieldValidation = mode
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine over table and the records held by persistence.
func NewEngine(table *rules.Table, persistence persistence.Persistence, opts ...Option) *Engine {
	engine := &Engine{
		table:           table,
		persistence:     persistence,
		records:         persistence.RecordRepository(),
		logger:          slog.Default(),
		tracer:          otelhelper.NoopTracer(),
		fieldValidation: FieldValidationEnforce,
		now:             func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(engine)
	}

	engine.logger = engine.logger.With("module", "workflow")

	return engine
}

// Table returns the rule table the engine runs.
func (e *Engine) Table() *rules.Table {
	return e.table
}

// HealthCheck checks the health of the persistence layer.
func (e *Engine) HealthCheck(ctx context.Context) (string, bool) {
	if e.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := e.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ExecuteRequest asks for action Key on RecordID. A RecordID of models.NewRecordID
// (or any id <= 0) runs an action of the initial state and creates the record.
type ExecuteRequest struct {
	Key        string
	RecordID   int64
	Submission models.Submission
}

// ExecuteResult identifies what a successful action wrote.
type ExecuteResult struct {
	RecordID  int64
	StepID    int64
	NextState string
}

// ExecuteAction checks and runs one action. On success the record state change and
// its step are stored together; on failure nothing is written.
func (e *Engine) ExecuteAction(ctx context.Context, req ExecuteRequest, user *models.User) (*ExecuteResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute_action",
		attribute.String(otelhelper.ActionKeyKey, req.Key),
		attribute.Int64(otelhelper.RecordIDKey, req.RecordID),
	)
	defer span.End()

	if user != nil {
		span.SetAttributes(
			attribute.Int64(otelhelper.OperatorIDKey, user.ID),
			attribute.String(otelhelper.OperatorRoleKey, string(user.Role)),
		)
	}

	var (
		record *models.Record
		step   *models.Step
		err    error
	)

	if models.IsNew(req.RecordID) {
		record, step, err = e.create(ctx, req, user)
	} else {
		record, step, err = e.transition(ctx, req, user)
	}

	if err != nil {
		otelhelper.SetError(span, err)

		if IsRejection(err) {
			e.logger.InfoContext(ctx, "Action rejected", "record_id", req.RecordID, "key", req.Key, "reason", err)
		} else {
			e.logger.ErrorContext(ctx, "Action failed", "record_id", req.RecordID, "key", req.Key, "error", err)
		}

		return nil, err
	}

	span.SetAttributes(
		attribute.Int64(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.FromStateKey, step.FromState),
		attribute.String(otelhelper.NextStateKey, step.NextState),
	)

	e.logger.InfoContext(ctx, "Action executed",
		"record_id", record.ID,
		"step_id", step.ID,
		"key", step.ActionKey,
		"from", step.FromState,
		"next", step.NextState,
		"operator_id", step.OperatorID,
	)

	e.publish(ctx, record, step)

	return &ExecuteResult{
		RecordID:  record.ID,
		StepID:    step.ID,
		NextState: record.CurrentState,
	}, nil
}

func (e *Engine) create(ctx context.Context, req ExecuteRequest, user *models.User) (*models.Record, *models.Step, error) {
	state := e.table.Initial()

	action, err := e.decide(state, req, user, nil)
	if err != nil {
		return nil, nil, err
	}

	title, ok := e.title(req.Submission)
	if !ok {
		title = e.table.DefaultTitle()
	}

	now := e.now()

	record := &models.Record{
		CreatorID:    user.ID,
		CreatorName:  user.DisplayName,
		Title:        title,
		CurrentState: action.Next,
		CreatedAt:    now,
	}

	step := newStep(action, state, user, req.Submission, now)

	err = e.records.Create(ctx, record, step)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create record: %w", err)
	}

	return record, step, nil
}

func (e *Engine) transition(ctx context.Context, req ExecuteRequest, user *models.User) (*models.Record, *models.Step, error) {
	record, step, err := e.records.Transition(ctx, req.RecordID, func(record *models.Record) (*models.Step, error) {
		from := record.CurrentState

		action, err := e.decide(from, req, user, record)
		if err != nil {
			return nil, err
		}

		if action.EditsTitle {
			if title, ok := e.title(req.Submission); ok {
				record.Title = title
			}
		}

		record.CurrentState = action.Next

		return newStep(action, from, user, req.Submission, e.now()), nil
	})
	if err != nil {
		if persistence.IsRecordNotFound(err) {
			return nil, nil, &Error{
				Op:       "ExecuteAction",
				RecordID: req.RecordID,
				Key:      req.Key,
				Message:  "workflow record does not exist",
				Err:      ErrNotFound,
			}
		}

		var engineErr *Error
		if errors.As(err, &engineErr) {
			return nil, nil, err
		}

		return nil, nil, fmt.Errorf("failed to execute transition: %w", err)
	}

	return record, step, nil
}

// decide resolves action req.Key in state and checks that user may run it with the
// submitted data. record is nil for actions of the initial state.
func (e *Engine) decide(state string, req ExecuteRequest, user *models.User, record *models.Record) (rules.Action, error) {
	fail := func(err error, format string, args ...any) (rules.Action, error) {
		return rules.Action{}, &Error{
			Op:       "ExecuteAction",
			RecordID: req.RecordID,
			Key:      req.Key,
			State:    state,
			Message:  fmt.Sprintf(format, args...),
			Err:      err,
		}
	}

	if !e.table.HasState(state) {
		return fail(ErrConfiguration, "system config error: unknown state %q", state)
	}

	action, ok := e.table.Action(state, req.Key)
	if !ok {
		return fail(ErrInvalidTransition, "action %q is not supported in state %q", req.Key, state)
	}

	if !permission.Check(action.WhoCan, user, record) {
		return fail(ErrPermissionDenied, "you do not have permission to execute %q", action.Name)
	}

	if e.fieldValidation == FieldValidationOff {
		return action, nil
	}

	err := e.table.ValidateSubmission(state, req.Key, req.Submission)
	if err != nil {
		var validationErr *rules.ValidationError
		if !errors.As(err, &validationErr) {
			return rules.Action{}, fmt.Errorf("failed to validate submission: %w", err)
		}

		engineErr := &Error{
			Op:       "ExecuteAction",
			RecordID: req.RecordID,
			Key:      req.Key,
			State:    state,
			Message:  validationErr.Error(),
			Err:      ErrValidation,
			Details:  validationErr.Fields,
		}

		return rules.Action{}, engineErr
	}

	return action, nil
}

// title returns the value of the title field when it was submitted.
func (e *Engine) title(submission models.Submission) (string, bool) {
	value, ok := submission.Lookup(e.table.TitleField())
	if !ok || value == nil {
		return "", false
	}

	if s, ok := value.(string); ok {
		return s, true
	}

	return fmt.Sprint(value), true
}

func newStep(action rules.Action, from string, user *models.User, submission models.Submission, now time.Time) *models.Step {
	data := slices.Clone(submission)
	if data == nil {
		data = models.Submission{}
	}

	return &models.Step{
		OperatorID:   user.ID,
		OperatorName: user.DisplayName,
		CreatedAt:    now,
		ActionKey:    action.Key,
		ActionName:   action.Name,
		FromState:    from,
		NextState:    action.Next,
		SubmitData:   data,
	}
}

// publish announces a committed step. Failures are logged; the step stays committed.
func (e *Engine) publish(ctx context.Context, record *models.Record, step *models.Step) {
	if e.publisher == nil {
		return
	}

	event := events.NewStepRecorded(record, step)

	err := e.publisher.Publish(ctx, strconv.FormatInt(record.ID, 10), event)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish step event",
			"error", err,
			"record_id", record.ID,
			"step_id", step.ID,
		)
	}
}

// WhatCanIDo lists the actions user may run on record, in declaration order. A nil or
// unsaved record means the initial state. For actions that edit the title, the title
// field is pre-populated with the record's current title.
func (e *Engine) WhatCanIDo(ctx context.Context, record *models.Record, user *models.User) []rules.Action {
	state := e.table.Initial()

	var existing *models.Record
	if record != nil && !models.IsNew(record.ID) {
		existing = record
		state = record.CurrentState
	}

	actions, ok := e.table.Actions(state)
	if !ok {
		e.logger.WarnContext(ctx, "Record is in an undeclared state", "state", state)

		return make([]rules.Action, 0)
	}

	allowed := make([]rules.Action, 0, len(actions))

	for _, action := range actions {
		if !permission.Check(action.WhoCan, user, existing) {
			continue
		}

		if action.EditsTitle && existing != nil {
			for i := range action.SubmitData {
				if action.SubmitData[i].Name == e.table.TitleField() {
					action.SubmitData[i].Value = existing.Title
				}
			}
		}

		allowed = append(allowed, action)
	}

	return allowed
}
