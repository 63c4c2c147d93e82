// Package user manages the staff accounts that may sign in to the API.
package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pawn-ledger/internal/pkg/apperrors"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

const MinPasswordLength = 8

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleStaff:
		return r, nil
	case "":
		return RoleStaff, nil
	}
	return "", apperrors.NewValidationError("role", fmt.Sprintf("unknown role %q, expected ADMIN or STAFF", s))
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}

var ErrNotFound = fmt.Errorf("user %w", apperrors.ErrNotFound)

type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByUsername(ctx context.Context, username string) (*User, error)
	Count(ctx context.Context) (int64, error)
}
