package models

import "time"

// Step is an immutable audit entry written for every executed action.
type Step struct {
	ID           int64      `json:"id"`
	RecordID     int64      `json:"design"`
	OperatorID   int64      `json:"operator"`
	OperatorName string     `json:"operator__realname"`
	CreatedAt    time.Time  `json:"actiondate"`
	ActionKey    string     `json:"actionkey"`
	ActionName   string     `json:"actionname"`
	FromState    string     `json:"fromstate"`
	NextState    string     `json:"nextstate"`
	SubmitData   Submission `json:"submitdata"`
}
