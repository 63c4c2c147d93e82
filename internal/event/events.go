package event

import (
	"context"
	"encoding/json"
	"time"
)

const (
	RoutingKeyCustomerCreated = "customer.created"
	RoutingKeyCustomerUpdated = "customer.updated"
	RoutingKeyLoanCreated     = "loan.created"
	RoutingKeyLoanPayment     = "loan.payment"
	RoutingKeyLoanClosed      = "loan.closed"
	RoutingKeyLoanOverdue     = "loan.overdue"
	RoutingKeySilverSold      = "silver.sold"
	RoutingKeyUdhariRecorded  = "udhari.recorded"
	RoutingKeyPriceUpdated    = "price.updated"

	DefaultExchangeName = "pawn-ledger"
	publisherAppID      = "pawn-ledger"
)

type EventPublisher interface {
	PublishCustomerCreated(ctx context.Context, payload CustomerPayload) error
	PublishCustomerUpdated(ctx context.Context, payload CustomerPayload) error
	PublishLoanCreated(ctx context.Context, payload LoanPayload) error
	PublishLoanPayment(ctx context.Context, payload LoanPaymentPayload) error
	PublishLoanClosed(ctx context.Context, payload LoanPayload) error
	PublishLoanOverdue(ctx context.Context, payload LoanOverduePayload) error
	PublishSilverSold(ctx context.Context, payload SilverSalePayload) error
	PublishUdhariRecorded(ctx context.Context, payload UdhariPayload) error
	PublishPriceUpdated(ctx context.Context, payload PricePayload) error
}

// Envelope is the JSON body of every message on the exchange.
type Envelope struct {
	EventID   string    `json:"eventId"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// RawEnvelope is the consumer side of Envelope with the payload left undecoded.
type RawEnvelope struct {
	EventID   string          `json:"eventId"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Amounts in payloads are paise, weights milligrams.
type CustomerPayload struct {
	CustomerID   int64     `json:"customerId"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	IsDelinquent bool      `json:"isDelinquent"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type LoanPayload struct {
	LoanID             int64     `json:"loanId"`
	LoanNumber         string    `json:"loanNumber"`
	CustomerID         int64     `json:"customerId"`
	Metal              string    `json:"metal"`
	PrincipalAmount    int64     `json:"principalAmount"`
	OutstandingBalance int64     `json:"outstandingBalance"`
	InterestRateBps    int64     `json:"interestRateBps"`
	DueDate            time.Time `json:"dueDate"`
	Status             string    `json:"status"`
}

type LoanPaymentPayload struct {
	LoanID           int64     `json:"loanId"`
	LoanNumber       string    `json:"loanNumber"`
	CustomerID       int64     `json:"customerId"`
	ReceiptNumber    string    `json:"receiptNumber"`
	Amount           int64     `json:"amount"`
	InterestPortion  int64     `json:"interestPortion"`
	PrincipalPortion int64     `json:"principalPortion"`
	BalanceAfter     int64     `json:"balanceAfter"`
	PaidOn           time.Time `json:"paidOn"`
	PaidThrough      time.Time `json:"paidThrough"`
	LoanClosed       bool      `json:"loanClosed"`
}

type LoanOverduePayload struct {
	LoanID              int64     `json:"loanId"`
	LoanNumber          string    `json:"loanNumber"`
	CustomerID          int64     `json:"customerId"`
	DueDate             time.Time `json:"dueDate"`
	InterestPaidThrough time.Time `json:"interestPaidThrough"`
	OutstandingBalance  int64     `json:"outstandingBalance"`
}

type SilverSalePayload struct {
	SaleID        int64     `json:"saleId"`
	ReceiptNumber string    `json:"receiptNumber"`
	CustomerID    *int64    `json:"customerId,omitempty"`
	WeightMg      int64     `json:"weightMg"`
	TotalAmount   int64     `json:"totalAmount"`
	SoldAt        time.Time `json:"soldAt"`
}

type UdhariPayload struct {
	TransactionID int64     `json:"transactionId"`
	CustomerID    int64     `json:"customerId"`
	Kind          string    `json:"kind"`
	Amount        int64     `json:"amount"`
	BalanceAfter  int64     `json:"balanceAfter"`
	TxnDate       time.Time `json:"txnDate"`
}

type PricePayload struct {
	Metal        string    `json:"metal"`
	PricePerGram int64     `json:"pricePerGram"`
	EffectiveAt  time.Time `json:"effectiveAt"`
	SetBy        string    `json:"setBy"`
}
