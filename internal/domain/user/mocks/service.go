package mocks

import (
	"context"

	"pawn-ledger/internal/domain/user"

	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

var _ user.Service = (*MockUserService)(nil)

func (m *MockUserService) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	args := m.Called(ctx, username, password)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) CreateUser(ctx context.Context, username, password string, role user.Role) (*user.User, error) {
	args := m.Called(ctx, username, password, role)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	return m.Called(ctx, username, password).Error(0)
}
