package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pawn-ledger/internal/api/handler/dto"
	"pawn-ledger/internal/domain/user"
	usermocks "pawn-ledger/internal/domain/user/mocks"
	"pawn-ledger/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_CreateUser(t *testing.T) {
	newHandler := func() (*UserHandler, *usermocks.MockUserService) {
		svc := new(usermocks.MockUserService)
		return NewUserHandler(svc, testLogger()), svc
	}

	t.Run("creates a staff user by default", func(t *testing.T) {
		h, svc := newHandler()
		createdAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		svc.On("CreateUser", mock.Anything, "ravi", "longenough", user.RoleStaff).
			Return(&user.User{ID: 7, Username: "ravi", Role: user.RoleStaff, Active: true, CreatedAt: createdAt}, nil).Once()

		rec := httptest.NewRecorder()
		h.CreateUser(rec, newRequest(http.MethodPost, "/users", `{"username":"ravi","password":"longenough"}`))

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.UserResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(7), resp.ID)
		assert.Equal(t, "ravi", resp.Username)
		assert.Equal(t, "STAFF", resp.Role)
		assert.True(t, resp.Active)
		assert.NotContains(t, rec.Body.String(), "password")
		svc.AssertExpectations(t)
	})

	t.Run("short password", func(t *testing.T) {
		h, svc := newHandler()
		svc.On("CreateUser", mock.Anything, "ravi", "short", user.RoleAdmin).
			Return(nil, apperrors.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", user.MinPasswordLength))).Once()

		rec := httptest.NewRecorder()
		h.CreateUser(rec, newRequest(http.MethodPost, "/users", `{"username":"ravi","password":"short","role":"admin"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		detail := decodeErrorResponse(t, rec)
		assert.Equal(t, "password", detail.Field)
		assert.Equal(t, apperrors.CodeValidation, detail.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown role never reaches the service", func(t *testing.T) {
		h, svc := newHandler()

		rec := httptest.NewRecorder()
		h.CreateUser(rec, newRequest(http.MethodPost, "/users", `{"username":"ravi","password":"longenough","role":"OWNER"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "role", decodeErrorResponse(t, rec).Field)
		svc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		h, svc := newHandler()

		rec := httptest.NewRecorder()
		h.CreateUser(rec, newRequest(http.MethodPost, "/users", `{"username":`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate username", func(t *testing.T) {
		h, svc := newHandler()
		svc.On("CreateUser", mock.Anything, "meena", "longenough", user.RoleStaff).
			Return(nil, fmt.Errorf("%w: username %q is taken", apperrors.ErrAlreadyExists, "meena")).Once()

		rec := httptest.NewRecorder()
		h.CreateUser(rec, newRequest(http.MethodPost, "/users", `{"username":"meena","password":"longenough","role":"STAFF"}`))

		assert.Equal(t, http.StatusConflict, rec.Code)
		detail := decodeErrorResponse(t, rec)
		assert.Equal(t, apperrors.CodeConflict, detail.Code)
		assert.Contains(t, detail.Message, "taken")
		svc.AssertExpectations(t)
	})
}

func TestNewUserHandler_PanicsOnNilService(t *testing.T) {
	assert.Panics(t, func() { NewUserHandler(nil, testLogger()) })
}
