package web

import (
	"time"

	"github.com/dukex/gradflow/pkg/models"
	"github.com/dukex/gradflow/pkg/workflow"
)

// Operations accepted in the action parameter of the graduate design endpoint.
const (
	ActionListByPage        = "listbypage"
	ActionGetOne            = "getone"
	ActionStepAction        = "stepaction"
	ActionGetStepActionData = "getstepactiondata"
)

// Envelope return codes.
const (
	RetOK       = 0
	RetNotFound = 1
	RetError    = 2
)

// ListByPageRequest holds the parameters of listbypage.
type ListByPageRequest struct {
	PageNum  int    `json:"pagenum"`
	PageSize int    `json:"pagesize" validate:"gte=0"`
	Keywords string `json:"keywords" validate:"max=200"`
}

// GetOneRequest holds the parameters of getone.
type GetOneRequest struct {
	WfID           *int64 `json:"wf_id"          validate:"required"`
	WithWhatCanIDo bool   `json:"withwhatcanido"`
}

// StepActionRequest holds the parameters of stepaction.
type StepActionRequest struct {
	Key        string            `json:"key"        validate:"required,max=64"`
	WfID       int64             `json:"wf_id"`
	SubmitData models.Submission `json:"submitdata" validate:"dive"`
}

// GetStepActionDataRequest holds the parameters of getstepactiondata.
type GetStepActionDataRequest struct {
	StepID int64 `json:"step_id" validate:"required,gt=0"`
}

// RecordResponse is the rec object of getone.
type RecordResponse struct {
	ID           int64          `json:"id"`
	CreatorName  string         `json:"creatorname"`
	Title        string         `json:"title"`
	CurrentState string         `json:"currentstate"`
	CreateDate   string         `json:"createdate"`
	Steps        []StepResponse `json:"steps"`
}

// StepResponse is one entry of the step history of getone.
type StepResponse struct {
	ID               int64     `json:"id"`
	OperatorRealname string    `json:"operator__realname"`
	ActionDate       time.Time `json:"actiondate"`
	ActionName       string    `json:"actionname"`
	NextState        string    `json:"nextstate"`
}

// TransformRecordDetail shapes a record and its history for getone. The placeholder
// of a new record has an empty creation date.
func TransformRecordDetail(detail *workflow.RecordDetail) RecordResponse {
	record := detail.Record

	response := RecordResponse{
		ID:           record.ID,
		CreatorName:  record.CreatorName,
		Title:        record.Title,
		CurrentState: record.CurrentState,
		Steps:        make([]StepResponse, 0, len(detail.Steps)),
	}

	if !record.CreatedAt.IsZero() {
		response.CreateDate = record.CreatedAt.Format(time.RFC3339)
	}

	for _, step := range detail.Steps {
		response.Steps = append(response.Steps, StepResponse{
			ID:               step.ID,
			OperatorRealname: step.OperatorName,
			ActionDate:       step.CreatedAt,
			ActionName:       step.ActionName,
			NextState:        step.NextState,
		})
	}

	return response
}
