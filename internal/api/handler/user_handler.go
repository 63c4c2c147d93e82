package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"pawn-ledger/internal/api/handler/dto"
	"pawn-ledger/internal/domain/user"
	"pawn-ledger/internal/pkg/apperrors"
)

type UserHandler struct {
	service user.Service
	logger  *slog.Logger
}

func NewUserHandler(s user.Service, l *slog.Logger) *UserHandler {
	if s == nil {
		panic("user service cannot be nil")
	}
	return &UserHandler{service: s, logger: l.With("component", "UserHandler")}
}

// CreateUser handles POST /users
// @Summary Create a staff user
// @Description Admins create ADMIN or STAFF accounts. Role defaults to STAFF.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body dto.CreateUserRequest true "New user"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Username taken"
// @Router /users [post]
// @Security BearerAuth
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	role, err := user.ParseRole(req.Role)
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.service.CreateUser(r.Context(), req.Username, req.Password, role)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to create user", slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewUserResponse(created))
}
