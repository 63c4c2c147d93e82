package dto

import (
	"time"

	"pawn-ledger/internal/domain/loan"
	"pawn-ledger/internal/domain/pricing"
	"pawn-ledger/internal/pkg/apperrors"
)

type PledgedItemRequest struct {
	Description string `json:"description"`
	GrossWeight string `json:"grossWeight"`
	NetWeight   string `json:"netWeight"`
	Purity      int    `json:"purity"`
}

type CreateLoanRequest struct {
	CustomerID      int64                `json:"customerId"`
	Metal           string               `json:"metal"`
	Items           []PledgedItemRequest `json:"items"`
	PrincipalAmount string               `json:"principalAmount"`
	InterestRateBps int64                `json:"interestRateBps,omitempty"`
	TermMonths      int                  `json:"termMonths,omitempty"`
	StartDate       string               `json:"startDate,omitempty"`
}

// ToParams converts the wire strings into domain units. Business rules are
// left to the loan service.
func (r *CreateLoanRequest) ToParams() (loan.CreateLoanParams, error) {
	if r.CustomerID <= 0 {
		return loan.CreateLoanParams{}, apperrors.NewValidationError("customerId", "customerId must be a positive number")
	}
	metal, err := pricing.ParseMetal(r.Metal)
	if err != nil {
		return loan.CreateLoanParams{}, err
	}
	principal, err := parseAmount("principalAmount", r.PrincipalAmount)
	if err != nil {
		return loan.CreateLoanParams{}, err
	}
	start, err := ParseDate("startDate", r.StartDate)
	if err != nil {
		return loan.CreateLoanParams{}, err
	}

	items := make([]loan.PledgedItem, 0, len(r.Items))
	for _, it := range r.Items {
		gross, err := parseWeight("grossWeight", it.GrossWeight)
		if err != nil {
			return loan.CreateLoanParams{}, err
		}
		net := gross
		if it.NetWeight != "" {
			if net, err = parseWeight("netWeight", it.NetWeight); err != nil {
				return loan.CreateLoanParams{}, err
			}
		}
		items = append(items, loan.PledgedItem{
			Description:    it.Description,
			GrossWeightMg:  gross,
			NetWeightMg:    net,
			PurityPermille: it.Purity,
		})
	}

	return loan.CreateLoanParams{
		CustomerID:      r.CustomerID,
		Metal:           metal,
		Items:           items,
		PrincipalAmount: principal,
		InterestRateBps: r.InterestRateBps,
		TermMonths:      r.TermMonths,
		StartDate:       start,
	}, nil
}

type PaymentRequest struct {
	Amount string `json:"amount"`
	Mode   string `json:"mode,omitempty"`
	PaidOn string `json:"paidOn,omitempty"`
	Note   string `json:"note,omitempty"`
}

func (r *PaymentRequest) ToParams(loanID int64) (loan.PaymentParams, error) {
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return loan.PaymentParams{}, err
	}
	mode, err := loan.ParsePaymentMode(r.Mode)
	if err != nil {
		return loan.PaymentParams{}, err
	}
	paidOn, err := ParseDate("paidOn", r.PaidOn)
	if err != nil {
		return loan.PaymentParams{}, err
	}
	return loan.PaymentParams{LoanID: loanID, Amount: amount, Mode: mode, PaidOn: paidOn, Note: r.Note}, nil
}

type PledgedItemResponse struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	GrossWeight string `json:"grossWeight"`
	NetWeight   string `json:"netWeight"`
	Purity      int    `json:"purity"`
}

type LoanResponse struct {
	ID                  int64                 `json:"id"`
	LoanNumber          string                `json:"loanNumber"`
	CustomerID          int64                 `json:"customerId"`
	Metal               string                `json:"metal"`
	Items               []PledgedItemResponse `json:"items,omitempty"`
	PrincipalAmount     string                `json:"principalAmount"`
	InterestRateBps     int64                 `json:"interestRateBps"`
	TermMonths          int                   `json:"termMonths"`
	StartDate           string                `json:"startDate"`
	DueDate             string                `json:"dueDate"`
	PricePerGram        string                `json:"pricePerGram"`
	CollateralValue     string                `json:"collateralValue"`
	LTVPercent          string                `json:"ltvPercent"`
	PrincipalRepaid     string                `json:"principalRepaid"`
	OutstandingBalance  string                `json:"outstandingBalance"`
	InterestPaidThrough string                `json:"interestPaidThrough"`
	Status              string                `json:"status"`
	ClosedAt            string                `json:"closedAt,omitempty"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           time.Time             `json:"updatedAt"`
}

func NewLoanResponse(l *loan.Loan) LoanResponse {
	resp := LoanResponse{
		ID:                  l.ID,
		LoanNumber:          l.LoanNumber,
		CustomerID:          l.CustomerID,
		Metal:               string(l.Metal),
		PrincipalAmount:     l.PrincipalAmount.String(),
		InterestRateBps:     l.InterestRateBps,
		TermMonths:          l.TermMonths,
		StartDate:           formatDate(l.StartDate),
		DueDate:             formatDate(l.DueDate),
		PricePerGram:        l.PricePerGram.String(),
		CollateralValue:     l.CollateralValue.String(),
		LTVPercent:          l.LTVPercent.StringFixed(2),
		PrincipalRepaid:     l.PrincipalRepaid.String(),
		OutstandingBalance:  l.OutstandingBalance.String(),
		InterestPaidThrough: formatDate(l.InterestPaidThrough),
		Status:              string(l.Status),
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
	if l.ClosedAt != nil {
		resp.ClosedAt = formatDate(*l.ClosedAt)
	}
	for _, it := range l.Items {
		resp.Items = append(resp.Items, PledgedItemResponse{
			ID:          it.ID,
			Description: it.Description,
			GrossWeight: it.GrossWeightMg.String(),
			NetWeight:   it.NetWeightMg.String(),
			Purity:      it.PurityPermille,
		})
	}
	return resp
}

func NewLoanListResponse(loans []*loan.Loan) []LoanResponse {
	resp := make([]LoanResponse, 0, len(loans))
	for _, l := range loans {
		resp = append(resp, NewLoanResponse(l))
	}
	return resp
}

type PaymentResponse struct {
	ID               int64     `json:"id"`
	LoanID           int64     `json:"loanId"`
	ReceiptNumber    string    `json:"receiptNumber"`
	Amount           string    `json:"amount"`
	InterestPortion  string    `json:"interestPortion"`
	PrincipalPortion string    `json:"principalPortion"`
	Mode             string    `json:"mode"`
	PaidOn           string    `json:"paidOn"`
	PaidThrough      string    `json:"paidThrough"`
	BalanceAfter     string    `json:"balanceAfter"`
	Note             string    `json:"note,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func NewPaymentResponse(p *loan.InterestPayment) PaymentResponse {
	return PaymentResponse{
		ID:               p.ID,
		LoanID:           p.LoanID,
		ReceiptNumber:    p.ReceiptNumber,
		Amount:           p.Amount.String(),
		InterestPortion:  p.InterestPortion.String(),
		PrincipalPortion: p.PrincipalPortion.String(),
		Mode:             string(p.Mode),
		PaidOn:           formatDate(p.PaidOn),
		PaidThrough:      formatDate(p.PaidThrough),
		BalanceAfter:     p.BalanceAfter.String(),
		Note:             p.Note,
		CreatedAt:        p.CreatedAt,
	}
}

func NewPaymentListResponse(payments []loan.InterestPayment) []PaymentResponse {
	resp := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		resp = append(resp, NewPaymentResponse(&payments[i]))
	}
	return resp
}

type StatementResponse struct {
	LoanID               int64  `json:"loanId"`
	AsOf                 string `json:"asOf"`
	PrincipalOutstanding string `json:"principalOutstanding"`
	AccruedInterest      string `json:"accruedInterest"`
	DaysAccrued          int64  `json:"daysAccrued"`
	TotalPayable         string `json:"totalPayable"`
}

func NewStatementResponse(st *loan.Statement) StatementResponse {
	return StatementResponse{
		LoanID:               st.LoanID,
		AsOf:                 formatDate(st.AsOf),
		PrincipalOutstanding: st.PrincipalOutstanding.String(),
		AccruedInterest:      st.AccruedInterest.String(),
		DaysAccrued:          st.DaysAccrued,
		TotalPayable:         st.TotalPayable.String(),
	}
}
