package user

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"pawn-ledger/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	args := m.Called(ctx, username)
	if u, ok := args.Get(0).(*User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func newTestService() (*service, *mockRepository) {
	repo := new(mockRepository)
	svc := NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
	svc.cost = bcrypt.MinCost
	return svc, repo
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()
	stored := &User{ID: 1, Username: "meena", PasswordHash: hashed(t, "s3cret-pass"), Role: RoleStaff, Active: true}
	repo.On("FindByUsername", ctx, "meena").Return(stored, nil)
	repo.On("FindByUsername", ctx, "ghost").Return(nil, ErrNotFound)

	u, err := svc.Authenticate(ctx, " Meena ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	_, err = svc.Authenticate(ctx, "meena", "wrong-pass")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "ghost", "whatever1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	stored.Active = false
	_, err = svc.Authenticate(ctx, "meena", "s3cret-pass")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestService_CreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes the password", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("Create", ctx, mock.MatchedBy(func(u *User) bool {
			return u.Username == "ravi" && u.Role == RoleStaff && u.Active &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("longenough")) == nil
		})).Return(nil).Once()

		u, err := svc.CreateUser(ctx, "Ravi", "longenough", RoleStaff)
		require.NoError(t, err)
		assert.NotEqual(t, "longenough", u.PasswordHash)
		repo.AssertExpectations(t)
	})

	t.Run("short password", func(t *testing.T) {
		svc, repo := newTestService()
		_, err := svc.CreateUser(ctx, "ravi", "short", RoleStaff)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate username", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("Create", ctx, mock.Anything).Return(apperrors.ErrAlreadyExists).Once()
		_, err := svc.CreateUser(ctx, "ravi", "longenough", RoleAdmin)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	})

	t.Run("unique violation from store", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("Create", ctx, mock.Anything).Return(fmt.Errorf("%w: users_username_key", apperrors.ErrConflict)).Once()
		_, err := svc.CreateUser(ctx, "ravi", "longenough", RoleStaff)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
		assert.ErrorContains(t, err, `username "ravi" is taken`)
	})

	t.Run("unknown role", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.CreateUser(ctx, "ravi", "longenough", Role("OWNER"))
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestService_EnsureBootstrapAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates admin on empty table", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("Count", ctx).Return(int64(0), nil).Once()
		repo.On("Create", ctx, mock.MatchedBy(func(u *User) bool { return u.Role == RoleAdmin && u.Username == "admin" })).Return(nil).Once()

		require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "admin", "change-me-now"))
		repo.AssertExpectations(t)
	})

	t.Run("no-op when users exist", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("Count", ctx).Return(int64(2), nil).Once()

		require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "admin", "change-me-now"))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("no credentials configured", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("Count", ctx).Return(int64(0), nil).Once()

		require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "", ""))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	r, err = ParseRole("")
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, r)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
