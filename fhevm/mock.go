package fhevm

import (
	"context"

	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockInstanceFactory mocks the MockFactory interface
type MockInstanceFactory struct {
	mock.Mock
}

// CreateMockInstance mocks the CreateMockInstance method
func (m *MockInstanceFactory) CreateMockInstance(ctx context.Context, params interfaces.MockParams) (interfaces.Instance, error) {
	args := m.Called(ctx, params)
	instance, _ := args.Get(0).(interfaces.Instance)
	return instance, args.Error(1)
}
