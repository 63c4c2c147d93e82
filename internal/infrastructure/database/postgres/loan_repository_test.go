package postgres

import (
	"errors"
	"testing"
	"time"

	"pawn-ledger/internal/domain/loan"
	"pawn-ledger/internal/domain/pricing"
	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/money"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loanCols = []string{
	"id", "loan_number", "customer_id", "metal", "principal_amount", "interest_rate_bps", "term_months",
	"start_date", "due_date", "price_per_gram", "collateral_value", "ltv_percent", "principal_repaid",
	"outstanding_balance", "interest_paid_through", "status", "closed_at", "created_at", "updated_at",
}

var paymentCols = []string{
	"id", "loan_id", "receipt_number", "amount", "interest_portion", "principal_portion", "mode",
	"paid_on", "paid_through", "balance_after", "note", "created_at",
}

func testDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestLoan() *loan.Loan {
	start := testDate(2024, 1, 1)
	return &loan.Loan{
		LoanNumber:          "GL-ABCDEF1234",
		CustomerID:          7,
		Metal:               pricing.MetalGold,
		PrincipalAmount:     money.Paise(3_000_000),
		InterestRateBps:     200,
		TermMonths:          12,
		StartDate:           start,
		DueDate:             start.AddDate(1, 0, 0),
		PricePerGram:        money.Paise(600_000),
		CollateralValue:     money.Paise(5_496_000),
		LTVPercent:          decimal.RequireFromString("54.59"),
		OutstandingBalance:  money.Paise(3_000_000),
		InterestPaidThrough: start,
		Status:              loan.StatusActive,
		Items: []loan.PledgedItem{
			{Description: "Chain", GrossWeightMg: 10_500, NetWeightMg: 10_000, PurityPermille: 916},
		},
	}
}

func addLoanRow(rows *pgxmock.Rows, id int64, l *loan.Loan, now time.Time) *pgxmock.Rows {
	return rows.AddRow(id, l.LoanNumber, l.CustomerID, l.Metal, l.PrincipalAmount, l.InterestRateBps, l.TermMonths,
		l.StartDate, l.DueDate, l.PricePerGram, l.CollateralValue, l.LTVPercent, l.PrincipalRepaid,
		l.OutstandingBalance, l.InterestPaidThrough, l.Status, nil, now, now)
}

func TestLoanRepository_CreateLoan(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	now := time.Now()
	l := newTestLoan()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("INSERT INTO loans").
		WithArgs(l.LoanNumber, l.CustomerID, l.Metal, l.PrincipalAmount, l.InterestRateBps, l.TermMonths,
			l.StartDate, l.DueDate, l.PricePerGram, l.CollateralValue, l.LTVPercent, l.PrincipalRepaid,
			l.OutstandingBalance, l.InterestPaidThrough, l.Status).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))
	mockPool.ExpectQuery("INSERT INTO pledged_items").
		WithArgs(int64(11), "Chain", money.Milligrams(10_500), money.Milligrams(10_000), 916).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(21)))
	mockPool.ExpectCommit()

	require.NoError(t, repo.CreateLoan(ctx, l))
	assert.Equal(t, int64(11), l.ID)
	assert.Equal(t, int64(21), l.Items[0].ID)
	assert.Equal(t, int64(11), l.Items[0].LoanID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_CreateLoanItemFailureRollsBack(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	now := time.Now()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("INSERT INTO loans").
		WithArgs(anyArgs(15)...).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))
	mockPool.ExpectQuery("INSERT INTO pledged_items").WithArgs(anyArgs(5)...).WillReturnError(errors.New("disk full"))
	mockPool.ExpectRollback()

	err := repo.CreateLoan(ctx, newTestLoan())
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_GetLoanByID(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	now := time.Now()
	l := newTestLoan()

	mockPool.ExpectQuery("SELECT (.+) FROM loans WHERE id = \\$1").
		WithArgs(int64(11)).
		WillReturnRows(addLoanRow(pgxmock.NewRows(loanCols), 11, l, now))
	mockPool.ExpectQuery("SELECT (.+) FROM pledged_items WHERE loan_id = \\$1").
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "loan_id", "description", "gross_weight_mg", "net_weight_mg", "purity_permille"}).
			AddRow(int64(21), int64(11), "Chain", money.Milligrams(10_500), money.Milligrams(10_000), 916))

	got, err := repo.GetLoanByID(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(11), got.ID)
	assert.Equal(t, loan.StatusActive, got.Status)
	assert.True(t, got.LTVPercent.Equal(decimal.RequireFromString("54.59")))
	assert.Nil(t, got.ClosedAt)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 916, got.Items[0].PurityPermille)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_GetLoanByIDNotFound(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)

	mockPool.ExpectQuery("SELECT (.+) FROM loans WHERE id = \\$1").
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetLoanByID(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_ListLoans(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	now := time.Now()
	l := newTestLoan()

	t.Run("filtered", func(t *testing.T) {
		mockPool.ExpectQuery("FROM loans WHERE customer_id = \\$1 AND status = \\$2 ORDER BY start_date DESC").
			WithArgs(int64(7), loan.StatusActive).
			WillReturnRows(addLoanRow(addLoanRow(pgxmock.NewRows(loanCols), 12, l, now), 11, l, now))

		loans, err := repo.ListLoans(ctx, loan.ListFilter{CustomerID: 7, Status: loan.StatusActive})
		require.NoError(t, err)
		require.Len(t, loans, 2)
		assert.Equal(t, int64(12), loans[0].ID)
	})

	t.Run("unfiltered", func(t *testing.T) {
		mockPool.ExpectQuery("FROM loans ORDER BY start_date DESC").
			WithArgs().
			WillReturnRows(pgxmock.NewRows(loanCols))

		loans, err := repo.ListLoans(ctx, loan.ListFilter{})
		require.NoError(t, err)
		assert.Empty(t, loans)
	})

	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_PaymentInTx(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	now := time.Now()
	l := newTestLoan()
	l.ID = 11

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("SELECT (.+) FROM loans WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(11)).
		WillReturnRows(addLoanRow(pgxmock.NewRows(loanCols), 11, l, now))
	mockPool.ExpectExec("UPDATE loans SET principal_repaid").
		WithArgs(money.Paise(1_000_000), money.Paise(2_000_000), testDate(2024, 2, 1), loan.StatusActive, (*time.Time)(nil), int64(11)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectQuery("INSERT INTO loan_payments").
		WithArgs(int64(11), "RCPT-1", money.Paise(1_060_000), money.Paise(60_000), money.Paise(1_000_000), loan.ModeUPI,
			testDate(2024, 2, 1), testDate(2024, 2, 1), money.Paise(2_000_000), "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(5), now))
	mockPool.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	locked, err := repo.GetLoanForUpdate(ctx, tx, 11)
	require.NoError(t, err)

	locked.PrincipalRepaid = 1_000_000
	locked.OutstandingBalance = 2_000_000
	locked.InterestPaidThrough = testDate(2024, 2, 1)
	require.NoError(t, repo.UpdateLoanInTx(ctx, tx, locked))

	p := &loan.InterestPayment{
		LoanID: 11, ReceiptNumber: "RCPT-1", Amount: 1_060_000, InterestPortion: 60_000, PrincipalPortion: 1_000_000,
		Mode: loan.ModeUPI, PaidOn: testDate(2024, 2, 1), PaidThrough: testDate(2024, 2, 1), BalanceAfter: 2_000_000,
	}
	require.NoError(t, repo.InsertPaymentInTx(ctx, tx, p))
	assert.Equal(t, int64(5), p.ID)

	require.NoError(t, repo.CommitTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_GetLoanForUpdateNotFound(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("FOR UPDATE").WithArgs(int64(3)).WillReturnError(pgx.ErrNoRows)
	mockPool.ExpectRollback()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	_, err = repo.GetLoanForUpdate(ctx, tx, 3)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, repo.RollbackTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_ListPayments(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	now := time.Now()

	mockPool.ExpectQuery("FROM loan_payments WHERE loan_id = \\$1 ORDER BY paid_on ASC").
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows(paymentCols).
			AddRow(int64(5), int64(11), "RCPT-1", money.Paise(60_000), money.Paise(60_000), money.Paise(0), loan.ModeCash,
				testDate(2024, 2, 1), testDate(2024, 2, 1), money.Paise(3_000_000), "", now))

	payments, err := repo.ListPayments(ctx, 11)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "RCPT-1", payments[0].ReceiptNumber)
	assert.Equal(t, money.Paise(60_000), payments[0].InterestPortion)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_GetAllActiveLoanIDs(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)

	mockPool.ExpectQuery("SELECT id FROM loans WHERE status = \\$1").
		WithArgs(loan.StatusActive).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(4)))

	ids, err := repo.GetAllActiveLoanIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, ids)

	mockPool.ExpectQuery("SELECT id FROM loans WHERE status = \\$1").
		WithArgs(loan.StatusActive).
		WillReturnError(errors.New("connection reset"))
	_, err = repo.GetAllActiveLoanIDs(ctx)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_MarkOverdue(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)

	mockPool.ExpectExec("UPDATE loans SET status = \\$1").
		WithArgs(loan.StatusOverdue, int64(4), loan.StatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	changed, err := repo.MarkOverdue(ctx, 4)
	require.NoError(t, err)
	assert.True(t, changed)

	mockPool.ExpectExec("UPDATE loans SET status = \\$1").
		WithArgs(loan.StatusOverdue, int64(4), loan.StatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	changed, err = repo.MarkOverdue(ctx, 4)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
