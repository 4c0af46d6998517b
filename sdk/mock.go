package sdk

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockSDK mocks the SDK interface
type MockSDK struct {
	mock.Mock
}

// Load mocks the Load method
func (m *MockSDK) Load(ctx context.Context) (interfaces.Module, error) {
	args := m.Called(ctx)
	module, _ := args.Get(0).(interfaces.Module)
	return module, args.Error(1)
}

// MockModule mocks the Module interface
type MockModule struct {
	mock.Mock
}

// Initialize mocks the Initialize method
func (m *MockModule) Initialize(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// CreateInstance mocks the CreateInstance method
func (m *MockModule) CreateInstance(ctx context.Context, config interfaces.InstanceConfig) (interfaces.Instance, error) {
	args := m.Called(ctx, config)
	instance, _ := args.Get(0).(interfaces.Instance)
	return instance, args.Error(1)
}

// DefaultConfig mocks the DefaultConfig method
func (m *MockModule) DefaultConfig() interfaces.InstanceConfig {
	args := m.Called()
	return args.Get(0).(interfaces.InstanceConfig)
}

// MockInstance mocks the Instance interface
type MockInstance struct {
	mock.Mock
}

// EncryptValue mocks the EncryptValue method
func (m *MockInstance) EncryptValue(ctx context.Context, value *uint256.Int, recipient common.Address) (*interfaces.EncryptedInput, error) {
	args := m.Called(ctx, value, recipient)
	input, _ := args.Get(0).(*interfaces.EncryptedInput)
	return input, args.Error(1)
}

// PublicKey mocks the PublicKey method
func (m *MockInstance) PublicKey() ([]byte, error) {
	args := m.Called()
	key, _ := args.Get(0).([]byte)
	return key, args.Error(1)
}

// PublicParams mocks the PublicParams method
func (m *MockInstance) PublicParams(size int) ([]byte, error) {
	args := m.Called(size)
	params, _ := args.Get(0).([]byte)
	return params, args.Error(1)
}
