package udhari

import (
	"testing"

	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_Apply(t *testing.T) {
	a := &Account{CustomerID: 1}

	require.NoError(t, a.Apply(KindGiven, 50_000))
	assert.Equal(t, money.Paise(50_000), a.OutstandingBalance)

	require.NoError(t, a.Apply(KindReceived, 20_000))
	assert.Equal(t, money.Paise(30_000), a.OutstandingBalance)

	err := a.Apply(KindReceived, 30_001)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentAmount)
	assert.Equal(t, money.Paise(30_000), a.OutstandingBalance)

	require.NoError(t, a.Apply(KindReceived, 30_000))
	assert.Equal(t, money.Paise(0), a.OutstandingBalance)

	assert.ErrorIs(t, a.Apply(KindGiven, 0), apperrors.ErrInvalidPaymentAmount)
	assert.ErrorIs(t, a.Apply(Kind("LENT"), 10), apperrors.ErrValidation)
}

func TestAccount_ApplyReceivedWithoutBalance(t *testing.T) {
	a := &Account{CustomerID: 1}
	assert.ErrorIs(t, a.Apply(KindReceived, 1), apperrors.ErrInvalidPaymentAmount)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" given ")
	require.NoError(t, err)
	assert.Equal(t, KindGiven, k)

	_, err = ParseKind("borrowed")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
