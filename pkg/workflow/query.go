package workflow

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dukex/gradflow/pkg/models"
	"github.com/dukex/gradflow/pkg/persistence"
	"github.com/dukex/gradflow/pkg/rules"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListRequest selects one page of records. Keywords are separated by spaces.
type ListRequest struct {
	PageNum  int
	PageSize int
	Keywords string
}

// ListResult is one page of records and the number of records matching the filter.
type ListResult struct {
	Items    []*models.Record
	Total    int64
	Keywords string
}

// ListByPage lists records newest first. Students only see their own records.
// A page outside the result set is empty, not an error.
func (e *Engine) ListByPage(ctx context.Context, req ListRequest, user *models.User) (*ListResult, error) {
	if user == nil {
		return nil, &Error{Op: "ListByPage", Message: "caller is unknown", Err: ErrPermissionDenied}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	pageSize = min(pageSize, MaxPageSize)

	opts := persistence.ListRecordsOptions{
		Keywords: strings.Fields(req.Keywords),
		Limit:    pageSize,
	}

	if user.Role == models.RoleStudent {
		creatorID := user.ID
		opts.CreatorID = &creatorID
	}

	inRange := req.PageNum >= 1 && req.PageNum-1 <= math.MaxInt32/pageSize
	if inRange {
		opts.Offset = (req.PageNum - 1) * pageSize
	}

	result, err := e.records.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	items := result.Records
	if !inRange || items == nil {
		items = make([]*models.Record, 0)
	}

	return &ListResult{
		Items:    items,
		Total:    result.TotalCount,
		Keywords: req.Keywords,
	}, nil
}

// RecordDetail is a record with its step history and, when requested, the actions
// the caller may run on it.
type RecordDetail struct {
	Record  *models.Record
	Steps   []*models.Step
	Actions []rules.Action
}

// GetOne returns record id with its steps. An id <= 0 returns the placeholder of a
// record that does not exist yet, in the initial state.
func (e *Engine) GetOne(ctx context.Context, id int64, withWhatCanIDo bool, user *models.User) (*RecordDetail, error) {
	if models.IsNew(id) {
		detail := &RecordDetail{
			Record: &models.Record{
				ID:           models.NewRecordID,
				CurrentState: e.table.Initial(),
			},
			Steps: make([]*models.Step, 0),
		}

		if withWhatCanIDo {
			detail.Actions = e.WhatCanIDo(ctx, nil, user)
		}

		return detail, nil
	}

	record, err := e.records.GetByID(ctx, id)
	if err != nil {
		if persistence.IsRecordNotFound(err) {
			return nil, &Error{Op: "GetOne", RecordID: id, Message: "record does not exist", Err: ErrNotFound}
		}

		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	steps, err := e.records.Steps(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}

	detail := &RecordDetail{
		Record: record,
		Steps:  steps,
	}

	if withWhatCanIDo {
		detail.Actions = e.WhatCanIDo(ctx, record, user)
	}

	return detail, nil
}

// StepActionData returns the submission stored with step stepID.
func (e *Engine) StepActionData(ctx context.Context, stepID int64) (models.Submission, error) {
	step, err := e.records.StepByID(ctx, stepID)
	if err != nil {
		if persistence.IsStepNotFound(err) {
			return nil, &Error{Op: "StepActionData", Message: "step does not exist", Err: ErrNotFound}
		}

		return nil, fmt.Errorf("failed to get step: %w", err)
	}

	if step.SubmitData == nil {
		return models.Submission{}, nil
	}

	return step.SubmitData, nil
}
