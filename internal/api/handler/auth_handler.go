package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pawn-ledger/internal/api/handler/dto"
	"pawn-ledger/internal/api/middleware"
	"pawn-ledger/internal/config"
	"pawn-ledger/internal/domain/user"
	"pawn-ledger/internal/pkg/apperrors"
)

type AuthHandler struct {
	users  user.Service
	cfg    config.AuthConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthHandler(users user.Service, cfg config.AuthConfig, l *slog.Logger) *AuthHandler {
	if users == nil {
		panic("user service cannot be nil")
	}
	return &AuthHandler{
		users:  users,
		cfg:    cfg,
		logger: l.With("component", "AuthHandler"),
		now:    time.Now,
	}
}

// Login exchanges staff credentials for a bearer token.
//
// @Summary Log in
// @Description Checks the username and password and returns a signed JWT carrying the user's role.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse "Token issued"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Login failed", slog.String("username", req.Username), slog.Any("error", err))
		respondError(w, err)
		return
	}

	token, expiresAt, err := middleware.IssueToken(h.cfg, u, h.now())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to issue token", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User logged in", slog.String("username", u.Username), slog.String("role", string(u.Role)))
	respondJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		Username:  u.Username,
		Role:      string(u.Role),
	})
}
