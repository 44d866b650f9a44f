package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/gradflow/pkg/models"
	"github.com/dukex/gradflow/pkg/persistence"
	"github.com/dukex/gradflow/pkg/persistence/sqlbase"
)

const recordColumns = `
			id
		  , creator_id
		  , creator_name
		  , title
		  , current_state
		  , created_at`

const stepColumns = `
			id
		  , record_id
		  , operator_id
		  , operator_name
		  , action_key
		  , action_name
		  , from_state
		  , next_state
		  , submit_data
		  , created_at`

// RecordRepository handles record-related database operations.
type RecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(db *sql.DB, logger *slog.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger}
}

// Create inserts a record and its first step in one transaction.
func (r *RecordRepository) Create(ctx context.Context, record *models.Record, step *models.Step) error {
	if record == nil || step == nil {
		return persistence.NewRecordError("Create", models.NewRecordID, persistence.ErrInvalidRecord)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var recordID int64

	err = tx.QueryRowContext(ctx, `
		INSERT INTO workflow_records (creator_id, creator_name, title, current_state, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		record.CreatorID,
		record.CreatorName,
		record.Title,
		record.CurrentState,
		record.CreatedAt,
	).Scan(&recordID)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	step.RecordID = recordID

	stepID, err := insertStep(ctx, tx, step)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	record.ID = recordID
	step.ID = stepID

	return nil
}

// Transition locks the record row, applies fn and writes the record with the new step.
func (r *RecordRepository) Transition(
	ctx context.Context,
	id int64,
	apply persistence.TransitionFunc,
) (*models.Record, *models.Step, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `SELECT`+recordColumns+`
		FROM workflow_records
		WHERE id = $1
		FOR UPDATE
	`, id)

	current, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, persistence.NewRecordError("Transition", id, persistence.ErrRecordNotFound)
		}

		return nil, nil, fmt.Errorf("failed to lock record: %w", err)
	}

	working := current.Clone()

	step, err := apply(working)
	if err != nil {
		return nil, nil, err
	}

	if step == nil {
		return nil, nil, persistence.NewRecordError("Transition", id, persistence.ErrInvalidRecord)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE workflow_records
		SET title = $2, current_state = $3
		WHERE id = $1
	`, id, working.Title, working.CurrentState)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update record: %w", err)
	}

	step.RecordID = id

	stepID, err := insertStep(ctx, tx, step)
	if err != nil {
		return nil, nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	committed = true
	step.ID = stepID

	updated := current.Clone()
	updated.Title = working.Title
	updated.CurrentState = working.CurrentState

	return updated, step, nil
}

// GetByID returns the record with the given ID.
func (r *RecordRepository) GetByID(ctx context.Context, id int64) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+recordColumns+`
		FROM workflow_records
		WHERE id = $1
	`, id)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("GetByID", id, persistence.ErrRecordNotFound)
		}

		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	return record, nil
}

// List returns one page of filtered records, newest first, and the total match count.
func (r *RecordRepository) List(
	ctx context.Context,
	opts persistence.ListRecordsOptions,
) (*persistence.RecordListResult, error) {
	where, args := listFilter(opts)

	var totalCount int64

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_records"+where, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	query := `SELECT` + recordColumns + `
		FROM workflow_records` + where + `
		ORDER BY id DESC`

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	defer func(ctx context.Context, r *RecordRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	records := make([]*models.Record, 0)

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return &persistence.RecordListResult{
		Records:    records,
		TotalCount: totalCount,
	}, nil
}

// Steps returns the steps of a record ordered by ID.
func (r *RecordRepository) Steps(ctx context.Context, recordID int64) ([]*models.Step, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT`+stepColumns+`
		FROM workflow_steps
		WHERE record_id = $1
		ORDER BY id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}

	defer func(ctx context.Context, r *RecordRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	steps := make([]*models.Step, 0)

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		steps = append(steps, step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

// StepByID returns the step with the given ID.
func (r *RecordRepository) StepByID(ctx context.Context, id int64) (*models.Step, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+stepColumns+`
		FROM workflow_steps
		WHERE id = $1
	`, id)

	step, err := scanStep(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStepError("StepByID", id, persistence.ErrStepNotFound)
		}

		return nil, fmt.Errorf("failed to scan step: %w", err)
	}

	return step, nil
}

func listFilter(opts persistence.ListRecordsOptions) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if opts.CreatorID != nil {
		args = append(args, *opts.CreatorID)
		conditions = append(conditions, "creator_id = $"+strconv.Itoa(len(args)))
	}

	for _, keyword := range opts.Keywords {
		args = append(args, sqlbase.ContainsPattern(keyword))
		placeholder := "$" + strconv.Itoa(len(args))
		conditions = append(conditions, "(title ILIKE "+placeholder+" OR creator_name ILIKE "+placeholder+")")
	}

	if len(conditions) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

func insertStep(ctx context.Context, tx *sql.Tx, step *models.Step) (int64, error) {
	submission := step.SubmitData
	if submission == nil {
		submission = models.Submission{}
	}

	submitJSON, err := json.Marshal(submission)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal submit data: %w", err)
	}

	var id int64

	err = tx.QueryRowContext(ctx, `
		INSERT INTO workflow_steps (record_id, operator_id, operator_name, action_key,
action_name, from_state, next_state, submit_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		step.RecordID,
		step.OperatorID,
		step.OperatorName,
		step.ActionKey,
		step.ActionName,
		step.FromState,
		step.NextState,
		submitJSON,
		step.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert step: %w", err)
	}

	return id, nil
}

func scanRecord(scanner interface {
	Scan(dest ...any) error
}) (*models.Record, error) {
	var record models.Record

	err := scanner.Scan(
		&record.ID,
		&record.CreatorID,
		&record.CreatorName,
		&record.Title,
		&record.CurrentState,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func scanStep(scanner interface {
	Scan(dest ...any) error
}) (*models.Step, error) {
	var (
		step       models.Step
		submitJSON []byte
	)

	err := scanner.Scan(
		&step.ID,
		&step.RecordID,
		&step.OperatorID,
		&step.OperatorName,
		&step.ActionKey,
		&step.ActionName,
		&step.FromState,
		&step.NextState,
		&submitJSON,
		&step.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if submitJSON != nil {
		err := json.Unmarshal(submitJSON, &step.SubmitData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal submit data: %w", err)
		}
	}

	return &step, nil
}
