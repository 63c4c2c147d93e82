package postgres

import (
	"context"
	"errors"
	"log/slog"

	"pawn-ledger/internal/domain/user"
	"pawn-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db DBPool, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger.With("component", "UserRepository")}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	sql := `
        INSERT INTO users (username, password_hash, role, active, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        RETURNING id, created_at`

	err := r.db.QueryRow(ctx, sql, u.Username, u.PasswordHash, u.Role, u.Active).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert user", slog.String("username", u.Username), slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `
        SELECT id, username, password_hash, role, active, created_at
        FROM users
        WHERE username = $1`

	var u user.User
	err := r.db.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find user", slog.String("username", username), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to find user")
	}
	return &u, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count users", slog.Any("error", err))
		return 0, apperrors.WrapDatabaseError(err, "failed to count users")
	}
	return n, nil
}
