package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pawn-ledger/internal/pkg/apperrors"

	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Authenticate(ctx context.Context, username, password string) (*User, error)
	CreateUser(ctx context.Context, username, password string, role Role) (*User, error)
	EnsureBootstrapAdmin(ctx context.Context, username, password string) error
}

type service struct {
	repo   Repository
	logger *slog.Logger
	cost   int
}

var _ Service = (*service)(nil)

func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.With("component", "userService"),
		cost:   bcrypt.DefaultCost,
	}
}

var errBadCredentials = fmt.Errorf("%w: invalid username or password", apperrors.ErrUnauthorized)

func (s *service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Login attempt for unknown user", slog.String("username", username))
			return nil, errBadCredentials
		}
		s.logger.ErrorContext(ctx, "Failed to look up user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	if !u.Active {
		s.logger.WarnContext(ctx, "Login attempt for inactive user", slog.String("username", username))
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Login attempt with wrong password", slog.String("username", username))
		return nil, errBadCredentials
	}
	return u, nil
}

func (s *service) CreateUser(ctx context.Context, username, password string, role Role) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, apperrors.NewValidationError("username", "username cannot be empty")
	}
	if len(password) < MinPasswordLength {
		return nil, apperrors.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if role != RoleAdmin && role != RoleStaff {
		return nil, apperrors.NewValidationError("role", "role must be ADMIN or STAFF")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: could not hash password: %v", apperrors.ErrInternalServer, err)
	}

	u := &User{Username: username, PasswordHash: string(hash), Role: role, Active: true}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) || errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: username %q is taken", apperrors.ErrAlreadyExists, username)
		}
		s.logger.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.InfoContext(ctx, "User created", slog.Int64("userID", u.ID), slog.String("username", username), slog.String("role", string(role)))
	return u, nil
}

// EnsureBootstrapAdmin creates the configured admin only when no user exists yet.
func (s *service) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	if strings.TrimSpace(username) == "" || password == "" {
		s.logger.WarnContext(ctx, "No users exist and no bootstrap admin is configured; nobody can log in")
		return nil
	}
	if _, err := s.CreateUser(ctx, username, password, RoleAdmin); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	s.logger.InfoContext(ctx, "Bootstrap admin created", slog.String("username", username))
	return nil
}
