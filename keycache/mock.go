package keycache

import (
	"context"

	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockKeyStore mocks the KeyStore interface
type MockKeyStore struct {
	mock.Mock
}

// Get mocks the Get method
func (m *MockKeyStore) Get(ctx context.Context, aclAddress string) (interfaces.KeyRecord, error) {
	args := m.Called(ctx, aclAddress)
	return args.Get(0).(interfaces.KeyRecord), args.Error(1)
}

// Set mocks the Set method
func (m *MockKeyStore) Set(ctx context.Context, aclAddress string, publicKey, publicParams []byte) error {
	args := m.Called(ctx, aclAddress, publicKey, publicParams)
	return args.Error(0)
}
