package dto

import (
	"time"

	"pawn-ledger/internal/domain/udhari"
	"pawn-ledger/internal/pkg/apperrors"
)

type UdhariTransactionRequest struct {
	CustomerID int64  `json:"customerId"`
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
	Note       string `json:"note,omitempty"`
	TxnDate    string `json:"txnDate,omitempty"`
}

func (r *UdhariTransactionRequest) ToParams() (udhari.TxnParams, error) {
	if r.CustomerID <= 0 {
		return udhari.TxnParams{}, apperrors.NewValidationError("customerId", "customerId must be a positive number")
	}
	kind, err := udhari.ParseKind(r.Kind)
	if err != nil {
		return udhari.TxnParams{}, err
	}
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return udhari.TxnParams{}, err
	}
	txnDate, err := ParseDate("txnDate", r.TxnDate)
	if err != nil {
		return udhari.TxnParams{}, err
	}
	return udhari.TxnParams{CustomerID: r.CustomerID, Kind: kind, Amount: amount, Note: r.Note, TxnDate: txnDate}, nil
}

type UdhariTransactionResponse struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customerId"`
	Kind         string    `json:"kind"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balanceAfter"`
	Note         string    `json:"note,omitempty"`
	TxnDate      string    `json:"txnDate"`
	CreatedAt    time.Time `json:"createdAt"`
}

func NewUdhariTransactionResponse(t *udhari.Transaction) UdhariTransactionResponse {
	return UdhariTransactionResponse{
		ID:           t.ID,
		CustomerID:   t.CustomerID,
		Kind:         string(t.Kind),
		Amount:       t.Amount.String(),
		BalanceAfter: t.BalanceAfter.String(),
		Note:         t.Note,
		TxnDate:      formatDate(t.TxnDate),
		CreatedAt:    t.CreatedAt,
	}
}

type UdhariAccountResponse struct {
	CustomerID         int64     `json:"customerId"`
	OutstandingBalance string    `json:"outstandingBalance"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func NewUdhariAccountResponse(a *udhari.Account) UdhariAccountResponse {
	return UdhariAccountResponse{
		CustomerID:         a.CustomerID,
		OutstandingBalance: a.OutstandingBalance.String(),
		UpdatedAt:          a.UpdatedAt,
	}
}

type UdhariStatementResponse struct {
	Account      UdhariAccountResponse       `json:"account"`
	Transactions []UdhariTransactionResponse `json:"transactions"`
}

func NewUdhariStatementResponse(a *udhari.Account, txns []udhari.Transaction) UdhariStatementResponse {
	resp := UdhariStatementResponse{
		Account:      NewUdhariAccountResponse(a),
		Transactions: make([]UdhariTransactionResponse, 0, len(txns)),
	}
	for i := range txns {
		resp.Transactions = append(resp.Transactions, NewUdhariTransactionResponse(&txns[i]))
	}
	return resp
}

func NewUdhariAccountListResponse(accounts []udhari.Account) []UdhariAccountResponse {
	resp := make([]UdhariAccountResponse, 0, len(accounts))
	for i := range accounts {
		resp = append(resp, NewUdhariAccountResponse(&accounts[i]))
	}
	return resp
}

type UdhariSummaryResponse struct {
	Accounts         int    `json:"accounts"`
	TotalOutstanding string `json:"totalOutstanding"`
}

func NewUdhariSummaryResponse(s *udhari.Summary) UdhariSummaryResponse {
	return UdhariSummaryResponse{Accounts: s.Accounts, TotalOutstanding: s.TotalOutstanding.String()}
}
