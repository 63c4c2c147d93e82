package postgres

import (
	"testing"
	"time"

	"pawn-ledger/internal/domain/udhari"
	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/money"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var udhariAccountCols = []string{"customer_id", "outstanding_balance", "updated_at"}

func TestUdhariRepository_RecordInTx(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewUdhariRepository(mockPool, logger)
	now := time.Now()
	txnDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO udhari_accounts (.+) ON CONFLICT \\(customer_id\\) DO NOTHING").
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mockPool.ExpectQuery("FROM udhari_accounts WHERE customer_id = \\$1 FOR UPDATE").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(udhariAccountCols).AddRow(int64(5), money.Paise(50_000), now))
	mockPool.ExpectQuery("INSERT INTO udhari_transactions").
		WithArgs(int64(5), udhari.KindReceived, money.Paise(20_000), money.Paise(30_000), "part", txnDate).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(40), now))
	mockPool.ExpectQuery("UPDATE udhari_accounts SET outstanding_balance = \\$1").
		WithArgs(money.Paise(30_000), int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))
	mockPool.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	account, err := repo.GetOrCreateAccountForUpdate(ctx, tx, 5)
	require.NoError(t, err)
	require.NoError(t, account.Apply(udhari.KindReceived, 20_000))

	txn := &udhari.Transaction{CustomerID: 5, Kind: udhari.KindReceived, Amount: 20_000, BalanceAfter: account.OutstandingBalance, Note: "part", TxnDate: txnDate}
	require.NoError(t, repo.InsertTransactionInTx(ctx, tx, txn))
	require.NoError(t, repo.UpdateAccountInTx(ctx, tx, account))
	require.NoError(t, repo.CommitTx(ctx, tx))

	assert.Equal(t, int64(40), txn.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestUdhariRepository_GetAccount(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewUdhariRepository(mockPool, logger)
	now := time.Now()

	mockPool.ExpectQuery("FROM udhari_accounts WHERE customer_id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(udhariAccountCols).AddRow(int64(5), money.Paise(1_500), now))
	account, err := repo.GetAccount(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, money.Paise(1_500), account.OutstandingBalance)

	mockPool.ExpectQuery("FROM udhari_accounts WHERE customer_id = \\$1").
		WithArgs(int64(6)).
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetAccount(ctx, 6)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestUdhariRepository_ListTransactions(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewUdhariRepository(mockPool, logger)
	now := time.Now()

	mockPool.ExpectQuery("FROM udhari_transactions WHERE customer_id = \\$1 ORDER BY txn_date DESC, id DESC LIMIT \\$2").
		WithArgs(int64(5), 50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "customer_id", "kind", "amount", "balance_after", "note", "txn_date", "created_at"}).
			AddRow(int64(2), int64(5), udhari.KindReceived, money.Paise(100), money.Paise(400), "", now, now).
			AddRow(int64(1), int64(5), udhari.KindGiven, money.Paise(500), money.Paise(500), "seed", now, now))

	txns, err := repo.ListTransactions(ctx, 5, 50)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, udhari.KindGiven, txns[1].Kind)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestUdhariRepository_OutstandingAndSummary(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	repo := NewUdhariRepository(mockPool, logger)
	now := time.Now()

	mockPool.ExpectQuery("FROM udhari_accounts WHERE outstanding_balance > 0 ORDER BY outstanding_balance DESC").
		WillReturnRows(pgxmock.NewRows(udhariAccountCols).
			AddRow(int64(2), money.Paise(9_000), now).
			AddRow(int64(5), money.Paise(1_000), now))
	accounts, err := repo.ListOutstanding(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	mockPool.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(SUM\\(outstanding_balance\\), 0\\)").
		WillReturnRows(pgxmock.NewRows([]string{"count", "sum"}).AddRow(2, money.Paise(10_000)))
	summary, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Accounts)
	assert.Equal(t, money.Paise(10_000), summary.TotalOutstanding)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
