package mocks

import (
	"context"

	"github.com/dukex/gradflow/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockDirectory is a mock implementation of directory.Directory interface.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) UserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDirectory) Close() error {
	args := m.Called()

	return args.Error(0)
}

// MockRedisHashClient is a mock implementation of directory.HashClient interface.
type MockRedisHashClient struct {
	mock.Mock
}

func (m *MockRedisHashClient) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	args := m.Called(ctx, key)

	var fields map[string]string
	if args.Get(0) != nil {
		fields = args.Get(0).(map[string]string)
	}

	return redis.NewMapStringStringResult(fields, args.Error(1))
}

func (m *MockRedisHashClient) Close() error {
	args := m.Called()

	return args.Error(0)
}
