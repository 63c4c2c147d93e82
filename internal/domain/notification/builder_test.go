package notification

import (
	"encoding/json"
	"testing"
	"time"

	"pawn-ledger/internal/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, typ string, payload any) event.RawEnvelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return event.RawEnvelope{EventID: "evt-1", Type: typ, Timestamp: time.Now(), Payload: raw}
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder("Lakshmi Jewellers")
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		env      event.RawEnvelope
		customer int64
		contains []string
	}{
		{
			name: "loan created",
			env: envelope(t, event.RoutingKeyLoanCreated, event.LoanPayload{
				LoanNumber: "GL-ABC", CustomerID: 7, Metal: "GOLD", PrincipalAmount: 4_000_000, InterestRateBps: 150, DueDate: due,
			}),
			customer: 7,
			contains: []string{"Lakshmi Jewellers: ", "gold loan GL-ABC", "Rs 40000.00", "1.50% a month", "10 Mar 2025"},
		},
		{
			name:     "loan closed",
			env:      envelope(t, event.RoutingKeyLoanClosed, event.LoanPayload{LoanNumber: "SL-XYZ", CustomerID: 8, Metal: "SILVER"}),
			customer: 8,
			contains: []string{"SL-XYZ", "closed"},
		},
		{
			name: "loan payment",
			env: envelope(t, event.RoutingKeyLoanPayment, event.LoanPaymentPayload{
				LoanNumber: "GL-ABC", CustomerID: 7, ReceiptNumber: "RCPT-1", Amount: 60_000, BalanceAfter: 3_000_000,
				PaidThrough: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			}),
			customer: 7,
			contains: []string{"Received Rs 600.00", "RCPT-1", "31 Jan 2024", "balance Rs 30000.00"},
		},
		{
			name: "loan overdue",
			env: envelope(t, event.RoutingKeyLoanOverdue, event.LoanOverduePayload{
				LoanNumber: "GL-ABC", CustomerID: 7, OutstandingBalance: 3_000_000, InterestPaidThrough: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			}),
			customer: 7,
			contains: []string{"overdue", "01 Jan 2024", "Rs 30000.00"},
		},
		{
			name:     "udhari given",
			env:      envelope(t, event.RoutingKeyUdhariRecorded, event.UdhariPayload{CustomerID: 4, Kind: "GIVEN", Amount: 50_000, BalanceAfter: 60_000}),
			customer: 4,
			contains: []string{"Rs 500.00 added", "Balance Rs 600.00"},
		},
		{
			name:     "udhari received",
			env:      envelope(t, event.RoutingKeyUdhariRecorded, event.UdhariPayload{CustomerID: 4, Kind: "RECEIVED", Amount: 10_000, BalanceAfter: 0}),
			customer: 4,
			contains: []string{"Received Rs 100.00", "Balance Rs 0.00"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := b.Build(tc.env)
			require.NoError(t, err)
			assert.Equal(t, tc.customer, n.CustomerID)
			assert.Equal(t, tc.env.Type, n.EventType)
			assert.Equal(t, "evt-1", n.EventID)
			assert.Equal(t, ChannelSMS, n.Channel)
			assert.Equal(t, StatusPending, n.Status)
			for _, want := range tc.contains {
				assert.Contains(t, n.Message, want)
			}
		})
	}
}

func TestBuilder_BuildRejects(t *testing.T) {
	b := NewBuilder("")

	_, err := b.Build(envelope(t, event.RoutingKeySilverSold, event.SilverSalePayload{SaleID: 1}))
	assert.ErrorIs(t, err, ErrUnsupportedEvent)

	_, err = b.Build(event.RawEnvelope{Type: event.RoutingKeyLoanCreated, Payload: json.RawMessage(`{"loanId":`)})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = b.Build(event.RawEnvelope{Type: event.RoutingKeyLoanPayment})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = b.Build(envelope(t, event.RoutingKeyLoanClosed, event.LoanPayload{LoanNumber: "GL-1"}))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}
