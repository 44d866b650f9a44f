// Package models defines the core domain models for the graduate-design approval workflow.
package models

import "time"

// NewRecordID is the record identifier clients send when no record exists yet.
const NewRecordID int64 = -1

// Record is one graduate-design topic moving through the workflow.
type Record struct {
	ID           int64     `json:"id"`
	CreatorID    int64     `json:"creator"`
	CreatorName  string    `json:"creator_realname"`
	Title        string    `json:"title"`
	CurrentState string    `json:"currentstate"`
	CreatedAt    time.Time `json:"createdate"`
}

// IsNew reports whether id refers to a record that does not exist yet.
func IsNew(id int64) bool {
	return id <= 0
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	clone := *r

	return &clone
}
