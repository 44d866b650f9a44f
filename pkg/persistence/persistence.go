// Package persistence provides the storage abstraction for workflow records and their step history.
package persistence

import (
	"context"
	"strings"

	"github.com/dukex/gradflow/pkg/models"
)

type Persistence interface {
	RecordRepository() RecordRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// TransitionFunc mutates the locked record in place and returns the step to append.
// Returning an error aborts the transition and nothing is written.
type TransitionFunc func(record *models.Record) (*models.Step, error)

// RecordRepository stores records and their append-only step history.
type RecordRepository interface {
	// Create stores a new record together with its first step. IDs are assigned to both.
	Create(ctx context.Context, record *models.Record, step *models.Step) error

	// Transition serializes concurrent writers on the record identified by id. The
	// updated title and state are written together with the returned step, or not at all.
	Transition(ctx context.Context, id int64, apply TransitionFunc) (*models.Record, *models.Step, error)

	GetByID(ctx context.Context, id int64) (*models.Record, error)
	List(ctx context.Context, opts ListRecordsOptions) (*RecordListResult, error)

	// Steps returns the history of a record ordered by step ID.
	Steps(ctx context.Context, recordID int64) ([]*models.Step, error)
	StepByID(ctx context.Context, id int64) (*models.Step, error)
}

// ListRecordsOptions filters and paginates records. Records are ordered newest first.
type ListRecordsOptions struct {
	// CreatorID restricts results to records created by that user.
	CreatorID *int64

	// Keywords must all appear, case-insensitively, in the title or the creator name.
	Keywords []string

	Limit  int
	Offset int
}

// RecordListResult contains one page of records and the total number of matches.
type RecordListResult struct {
	Records    []*models.Record
	TotalCount int64
}

// Matches reports whether record passes the creator and keyword filters of o.
func (o ListRecordsOptions) Matches(record *models.Record) bool {
	if o.CreatorID != nil && record.CreatorID != *o.CreatorID {
		return false
	}

	title := strings.ToLower(record.Title)
	creator := strings.ToLower(record.CreatorName)

	for _, keyword := range o.Keywords {
		keyword = strings.ToLower(keyword)
		if !strings.Contains(title, keyword) && !strings.Contains(creator, keyword) {
			return false
		}
	}

	return true
}
