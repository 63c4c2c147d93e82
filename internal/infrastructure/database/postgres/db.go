package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pawn-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// DBPool is the slice of *pgxpool.Pool the repositories use.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

// txManager gives repositories that run multi-statement writes the
// BeginTx/CommitTx/RollbackTx trio their domain interfaces expect.
type txManager struct {
	db     DBPool
	logger *slog.Logger
}

func (m txManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to begin transaction")
	}
	return tx, nil
}

func (m txManager) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Failed to commit transaction", slog.Any("error", err))
		return apperrors.WrapDatabaseError(err, "failed to commit transaction")
	}
	return nil
}

func (m txManager) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	if tx == nil {
		return nil
	}
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		m.logger.ErrorContext(ctx, "Failed to rollback transaction", slog.Any("error", err))
		return apperrors.WrapDatabaseError(err, "failed to roll back transaction")
	}
	return nil
}

// translateDBError maps driver errors onto the apperrors sentinels.
func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		case pgForeignKeyViolation, pgCheckViolation:
			contextLogger.Warn("Database constraint violation", "code", pgErr.Code, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrConflict, pgErr.ConstraintName)
		}
		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return apperrors.WrapDatabaseError(pgErr, "db error code "+pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return apperrors.WrapDatabaseError(err, "database operation failed")
}
