package mocks

import (
	"context"

	"github.com/dukex/gradflow/pkg/models"
	"github.com/dukex/gradflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) RecordRepository() persistence.RecordRepository {
	args := m.Called()

	return args.Get(0).(persistence.RecordRepository)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockRecordRepository is a mock implementation of persistence.RecordRepository interface.
type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) Create(ctx context.Context, record *models.Record, step *models.Step) error {
	args := m.Called(ctx, record, step)

	return args.Error(0)
}

func (m *MockRecordRepository) Transition(
	ctx context.Context,
	id int64,
	apply persistence.TransitionFunc,
) (*models.Record, *models.Step, error) {
	args := m.Called(ctx, id, apply)

	var (
		record *models.Record
		step   *models.Step
	)

	if args.Get(0) != nil {
		record = args.Get(0).(*models.Record)
	}

	if args.Get(1) != nil {
		step = args.Get(1).(*models.Step)
	}

	return record, step, args.Error(2)
}

func (m *MockRecordRepository) GetByID(ctx context.Context, id int64) (*models.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *MockRecordRepository) List(
	ctx context.Context,
	opts persistence.ListRecordsOptions,
) (*persistence.RecordListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.RecordListResult), args.Error(1)
}

func (m *MockRecordRepository) Steps(ctx context.Context, recordID int64) ([]*models.Step, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Step), args.Error(1)
}

func (m *MockRecordRepository) StepByID(ctx context.Context, id int64) (*models.Step, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Step), args.Error(1)
}
