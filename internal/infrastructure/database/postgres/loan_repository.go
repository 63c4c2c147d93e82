package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pawn-ledger/internal/domain/loan"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const loanColumns = `id, loan_number, customer_id, metal, principal_amount, interest_rate_bps, term_months,
        start_date, due_date, price_per_gram, collateral_value, ltv_percent, principal_repaid,
        outstanding_balance, interest_paid_through, status, closed_at, created_at, updated_at`

const paymentColumns = `id, loan_id, receipt_number, amount, interest_portion, principal_portion, mode,
        paid_on, paid_through, balance_after, note, created_at`

type LoanRepository struct {
	txManager
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	logger = logger.With("component", "LoanRepository")
	return &LoanRepository{txManager: txManager{db: db, logger: logger}, db: db, logger: logger}
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.LoanNumber, &l.CustomerID, &l.Metal, &l.PrincipalAmount, &l.InterestRateBps, &l.TermMonths,
		&l.StartDate, &l.DueDate, &l.PricePerGram, &l.CollateralValue, &l.LTVPercent, &l.PrincipalRepaid,
		&l.OutstandingBalance, &l.InterestPaidThrough, &l.Status, &l.ClosedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanPayment(row pgx.Row) (loan.InterestPayment, error) {
	var p loan.InterestPayment
	err := row.Scan(
		&p.ID, &p.LoanID, &p.ReceiptNumber, &p.Amount, &p.InterestPortion, &p.PrincipalPortion, &p.Mode,
		&p.PaidOn, &p.PaidThrough, &p.BalanceAfter, &p.Note, &p.CreatedAt,
	)
	return p, err
}

func (r *LoanRepository) CreateLoan(ctx context.Context, newLoan *loan.Loan) (err error) {
	defer monitoring.ObserveDBQuery("CreateLoan", time.Now(), &err)

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = r.RollbackTx(ctx, tx)
		}
	}()

	loanSQL := `
        INSERT INTO loans (loan_number, customer_id, metal, principal_amount, interest_rate_bps, term_months,
            start_date, due_date, price_per_gram, collateral_value, ltv_percent, principal_repaid,
            outstanding_balance, interest_paid_through, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, loanSQL,
		newLoan.LoanNumber, newLoan.CustomerID, newLoan.Metal, newLoan.PrincipalAmount, newLoan.InterestRateBps,
		newLoan.TermMonths, newLoan.StartDate, newLoan.DueDate, newLoan.PricePerGram, newLoan.CollateralValue,
		newLoan.LTVPercent, newLoan.PrincipalRepaid, newLoan.OutstandingBalance, newLoan.InterestPaidThrough,
		newLoan.Status,
	).Scan(&newLoan.ID, &newLoan.CreatedAt, &newLoan.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}

	itemSQL := `
        INSERT INTO pledged_items (loan_id, description, gross_weight_mg, net_weight_mg, purity_permille)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`

	for i := range newLoan.Items {
		item := &newLoan.Items[i]
		item.LoanID = newLoan.ID
		err = tx.QueryRow(ctx, itemSQL, newLoan.ID, item.Description, item.GrossWeightMg, item.NetWeightMg, item.PurityPermille).
			Scan(&item.ID)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to insert pledged item", slog.Int("itemIndex", i), slog.Any("error", err))
			return apperrors.WrapDatabaseError(err, fmt.Sprintf("failed inserting pledged item %d", i+1))
		}
	}

	if err = r.CommitTx(ctx, tx); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Loan created in DB", slog.Int64("loanID", newLoan.ID), slog.Int("items", len(newLoan.Items)))
	return nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (l *loan.Loan, err error) {
	defer monitoring.ObserveDBQuery("GetLoanByID", time.Now(), &err)

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	l, err = scanLoan(r.db.QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", slog.Int64("loanID", loanID))
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", slog.Int64("loanID", loanID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to get loan by id")
	}

	l.Items, err = r.getItems(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *LoanRepository) getItems(ctx context.Context, loanID int64) ([]loan.PledgedItem, error) {
	query := `
        SELECT id, loan_id, description, gross_weight_mg, net_weight_mg, purity_permille
        FROM pledged_items
        WHERE loan_id = $1
        ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query pledged items", slog.Int64("loanID", loanID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to load pledged items")
	}
	defer rows.Close()

	items := make([]loan.PledgedItem, 0)
	for rows.Next() {
		var it loan.PledgedItem
		if err := rows.Scan(&it.ID, &it.LoanID, &it.Description, &it.GrossWeightMg, &it.NetWeightMg, &it.PurityPermille); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed to load pledged items")
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "failed to load pledged items")
	}
	return items, nil
}

// ListLoans returns loans without their pledged items, newest first.
func (r *LoanRepository) ListLoans(ctx context.Context, filter loan.ListFilter) ([]*loan.Loan, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + loanColumns + ` FROM loans`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_date DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to list loans")
	}
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", slog.Any("error", err))
			return nil, apperrors.WrapDatabaseError(err, "failed to list loans")
		}
		loans = append(loans, l)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "failed to list loans")
	}
	return loans, nil
}

func (r *LoanRepository) GetLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	l, err := scanLoan(tx.QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock loan", slog.Int64("loanID", loanID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to lock loan")
	}
	return l, nil
}

func (r *LoanRepository) UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	sql := `
        UPDATE loans
        SET principal_repaid = $1, outstanding_balance = $2, interest_paid_through = $3,
            status = $4, closed_at = $5, updated_at = NOW()
        WHERE id = $6`

	cmdTag, err := tx.Exec(ctx, sql, l.PrincipalRepaid, l.OutstandingBalance, l.InterestPaidThrough, l.Status, l.ClosedAt, l.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", slog.Int64("loanID", l.ID), slog.Any("error", err))
		return apperrors.WrapDatabaseError(err, "failed to update loan")
	}
	if cmdTag.RowsAffected() != 1 {
		return apperrors.WrapDatabaseError(pgx.ErrNoRows, "loan update affected zero rows")
	}
	return nil
}

func (r *LoanRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *loan.InterestPayment) error {
	sql := `
        INSERT INTO loan_payments (loan_id, receipt_number, amount, interest_portion, principal_portion, mode,
            paid_on, paid_through, balance_after, note, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        RETURNING id, created_at`

	err := tx.QueryRow(ctx, sql, p.LoanID, p.ReceiptNumber, p.Amount, p.InterestPortion, p.PrincipalPortion, p.Mode,
		p.PaidOn, p.PaidThrough, p.BalanceAfter, p.Note).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan payment", slog.Int64("loanID", p.LoanID), slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *LoanRepository) ListPayments(ctx context.Context, loanID int64) ([]loan.InterestPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM loan_payments WHERE loan_id = $1 ORDER BY paid_on ASC, id ASC`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loan payments", slog.Int64("loanID", loanID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to list interest payments")
	}
	defer rows.Close()

	payments := make([]loan.InterestPayment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed to list interest payments")
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "failed to list interest payments")
	}
	return payments, nil
}

func (r *LoanRepository) GetAllActiveLoanIDs(ctx context.Context) ([]int64, error) {
	logCtx := r.logger.With(slog.String("operation", "GetAllActiveLoanIDs"))
	logCtx.DebugContext(ctx, "Attempting to get all active loan IDs")

	query := `SELECT id FROM loans WHERE status = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, loan.StatusActive)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query active loan IDs", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to query active loans")
	}
	defer rows.Close()

	loanIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan active loan ID row", slog.Any("error", err))
			return nil, apperrors.WrapDatabaseError(err, "failed scanning active loan ID")
		}
		loanIDs = append(loanIDs, id)
	}
	if err = rows.Err(); err != nil {
		logCtx.ErrorContext(ctx, "Error iterating active loan ID rows", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "error iterating active loan IDs")
	}

	logCtx.DebugContext(ctx, "Finished getting active loan IDs", slog.Int("count", len(loanIDs)))
	return loanIDs, nil
}

func (r *LoanRepository) MarkOverdue(ctx context.Context, loanID int64) (bool, error) {
	sql := `UPDATE loans SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`

	cmdTag, err := r.db.Exec(ctx, sql, loan.StatusOverdue, loanID, loan.StatusActive)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark loan overdue", slog.Int64("loanID", loanID), slog.Any("error", err))
		return false, apperrors.WrapDatabaseError(err, "failed to mark loan overdue")
	}
	return cmdTag.RowsAffected() == 1, nil
}
