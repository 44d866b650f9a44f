// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/gradflow/pkg/models"
)

// FixedTime is the creation time of every built record and step.
var FixedTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Users of the graduate design scenarios.
var (
	Admin        = &models.User{ID: 1, Username: "admin", DisplayName: "Administrator", Role: models.RoleAdmin}
	Student      = &models.User{ID: 10, Username: "lilei", DisplayName: "Li Lei", Role: models.RoleStudent}
	OtherStudent = &models.User{ID: 11, Username: "hanmeimei", DisplayName: "Han Meimei", Role: models.RoleStudent}
	Teacher      = &models.User{ID: 20, Username: "wang", DisplayName: "Prof. Wang", Role: models.RoleTeacher}
)

// CreateTestRecord creates an unsaved record in state "Topic Created" that can be overridden.
func CreateTestRecord(overrides ...func(*models.Record)) *models.Record {
	record := &models.Record{
		CreatorID:    Student.ID,
		CreatorName:  Student.DisplayName,
		Title:        "Sensor Network Topic",
		CurrentState: "Topic Created",
		CreatedAt:    FixedTime,
	}

	for _, override := range overrides {
		override(record)
	}

	return record
}

// CreateTestStep creates an unsaved create_topic step that can be overridden.
func CreateTestStep(overrides ...func(*models.Step)) *models.Step {
	step := &models.Step{
		OperatorID:   Student.ID,
		OperatorName: Student.DisplayName,
		CreatedAt:    FixedTime,
		ActionKey:    "create_topic",
		ActionName:   "Create Topic",
		FromState:    "Start",
		NextState:    "Topic Created",
		SubmitData:   models.Submission{},
	}

	for _, override := range overrides {
		override(step)
	}

	return step
}

// CreateTestTopic builds the record and first step a creator writes with create_topic.
func CreateTestTopic(creatorID int64, creatorName, title string) (*models.Record, *models.Step) {
	record := CreateTestRecord(WithCreator(creatorID, creatorName), WithTitle(title))
	step := CreateTestStep(func(s *models.Step) {
		s.OperatorID = creatorID
		s.OperatorName = creatorName
		s.SubmitData = models.Submission{{Name: "Graduate Design Title", Value: title}}
	})

	return record, step
}

// WithCreator sets the creator of the record.
func WithCreator(id int64, name string) func(*models.Record) {
	return func(r *models.Record) {
		r.CreatorID = id
		r.CreatorName = name
	}
}

// WithTitle sets the record title.
func WithTitle(title string) func(*models.Record) {
	return func(r *models.Record) {
		r.Title = title
	}
}

// WithState sets the current state of the record.
func WithState(state string) func(*models.Record) {
	return func(r *models.Record) {
		r.CurrentState = state
	}
}

// WithID sets the record ID, making it look persisted.
func WithID(id int64) func(*models.Record) {
	return func(r *models.Record) {
		r.ID = id
	}
}
