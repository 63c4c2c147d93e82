package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pawn-ledger/internal/domain/udhari"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

type UdhariRepository struct {
	txManager
	db     DBPool
	logger *slog.Logger
}

var _ udhari.Repository = (*UdhariRepository)(nil)

func NewUdhariRepository(db DBPool, logger *slog.Logger) *UdhariRepository {
	logger = logger.With("component", "UdhariRepository")
	return &UdhariRepository{txManager: txManager{db: db, logger: logger}, db: db, logger: logger}
}

func (r *UdhariRepository) GetOrCreateAccountForUpdate(ctx context.Context, tx pgx.Tx, customerID int64) (*udhari.Account, error) {
	ensureSQL := `
        INSERT INTO udhari_accounts (customer_id, outstanding_balance, updated_at)
        VALUES ($1, 0, NOW())
        ON CONFLICT (customer_id) DO NOTHING`

	if _, err := tx.Exec(ctx, ensureSQL, customerID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to ensure udhari account", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, translateDBError(err, r.logger)
	}

	lockSQL := `
        SELECT customer_id, outstanding_balance, updated_at
        FROM udhari_accounts
        WHERE customer_id = $1
        FOR UPDATE`

	var a udhari.Account
	if err := tx.QueryRow(ctx, lockSQL, customerID).Scan(&a.CustomerID, &a.OutstandingBalance, &a.UpdatedAt); err != nil {
		r.logger.ErrorContext(ctx, "Failed to lock udhari account", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, translateDBError(err, r.logger)
	}
	return &a, nil
}

func (r *UdhariRepository) UpdateAccountInTx(ctx context.Context, tx pgx.Tx, account *udhari.Account) error {
	sql := `
        UPDATE udhari_accounts
        SET outstanding_balance = $1, updated_at = NOW()
        WHERE customer_id = $2
        RETURNING updated_at`

	if err := tx.QueryRow(ctx, sql, account.OutstandingBalance, account.CustomerID).Scan(&account.UpdatedAt); err != nil {
		r.logger.ErrorContext(ctx, "Failed to update udhari account", slog.Int64("customerID", account.CustomerID), slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *UdhariRepository) InsertTransactionInTx(ctx context.Context, tx pgx.Tx, txn *udhari.Transaction) (err error) {
	defer monitoring.ObserveDBQuery("InsertUdhariTransaction", time.Now(), &err)

	sql := `
        INSERT INTO udhari_transactions (customer_id, kind, amount, balance_after, note, txn_date, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING id, created_at`

	err = tx.QueryRow(ctx, sql, txn.CustomerID, txn.Kind, txn.Amount, txn.BalanceAfter, txn.Note, txn.TxnDate).
		Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert udhari transaction", slog.Int64("customerID", txn.CustomerID), slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *UdhariRepository) GetAccount(ctx context.Context, customerID int64) (*udhari.Account, error) {
	query := `SELECT customer_id, outstanding_balance, updated_at FROM udhari_accounts WHERE customer_id = $1`

	var a udhari.Account
	err := r.db.QueryRow(ctx, query, customerID).Scan(&a.CustomerID, &a.OutstandingBalance, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get udhari account", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to get udhari account")
	}
	return &a, nil
}

// ListTransactions returns the customer's newest transactions first.
func (r *UdhariRepository) ListTransactions(ctx context.Context, customerID int64, limit int) ([]udhari.Transaction, error) {
	query := `
        SELECT id, customer_id, kind, amount, balance_after, note, txn_date, created_at
        FROM udhari_transactions
        WHERE customer_id = $1
        ORDER BY txn_date DESC, id DESC
        LIMIT $2`

	rows, err := r.db.Query(ctx, query, customerID, limit)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query udhari transactions", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to list udhari transactions")
	}
	defer rows.Close()

	txns := make([]udhari.Transaction, 0)
	for rows.Next() {
		var t udhari.Transaction
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.Kind, &t.Amount, &t.BalanceAfter, &t.Note, &t.TxnDate, &t.CreatedAt); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed to list udhari transactions")
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "failed to list udhari transactions")
	}
	return txns, nil
}

// ListOutstanding returns accounts with a positive balance, largest first.
func (r *UdhariRepository) ListOutstanding(ctx context.Context) ([]udhari.Account, error) {
	query := `
        SELECT customer_id, outstanding_balance, updated_at
        FROM udhari_accounts
        WHERE outstanding_balance > 0
        ORDER BY outstanding_balance DESC, customer_id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query outstanding udhari", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to list outstanding udhari")
	}
	defer rows.Close()

	accounts := make([]udhari.Account, 0)
	for rows.Next() {
		var a udhari.Account
		if err := rows.Scan(&a.CustomerID, &a.OutstandingBalance, &a.UpdatedAt); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed to list outstanding udhari")
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "failed to list outstanding udhari")
	}
	return accounts, nil
}

func (r *UdhariRepository) Summary(ctx context.Context) (*udhari.Summary, error) {
	query := `
        SELECT COUNT(*), COALESCE(SUM(outstanding_balance), 0)::BIGINT
        FROM udhari_accounts
        WHERE outstanding_balance > 0`

	var s udhari.Summary
	if err := r.db.QueryRow(ctx, query).Scan(&s.Accounts, &s.TotalOutstanding); err != nil {
		r.logger.ErrorContext(ctx, "Failed to summarise udhari", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to summarise udhari")
	}
	return &s, nil
}
