package loan

import (
	"fmt"
	"strings"
	"time"

	"pawn-ledger/internal/domain/pricing"
	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/calculator"
	"pawn-ledger/internal/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	StatusActive  LoanStatus = "ACTIVE"
	StatusOverdue LoanStatus = "OVERDUE"
	StatusClosed  LoanStatus = "CLOSED"
)

func ParseStatus(s string) (LoanStatus, error) {
	switch st := LoanStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusActive, StatusOverdue, StatusClosed:
		return st, nil
	}
	return "", apperrors.NewValidationError("status", fmt.Sprintf("unknown loan status %q", s))
}

type PaymentMode string

const (
	ModeCash PaymentMode = "CASH"
	ModeUPI  PaymentMode = "UPI"
	ModeBank PaymentMode = "BANK"
	ModeCard PaymentMode = "CARD"
)

// ParsePaymentMode defaults an empty mode to CASH.
func ParsePaymentMode(s string) (PaymentMode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ModeCash, nil
	}
	switch m := PaymentMode(s); m {
	case ModeCash, ModeUPI, ModeBank, ModeCard:
		return m, nil
	}
	return "", apperrors.NewValidationError("mode", fmt.Sprintf("unknown payment mode %q", s))
}

type PledgedItem struct {
	ID             int64            `json:"id,omitempty"`
	LoanID         int64            `json:"loanId,omitempty"`
	Description    string           `json:"description"`
	GrossWeightMg  money.Milligrams `json:"grossWeightMg"`
	NetWeightMg    money.Milligrams `json:"netWeightMg"`
	PurityPermille int              `json:"purityPermille"`
}

func (it PledgedItem) Validate(idx int) error {
	field := func(name string) string { return fmt.Sprintf("items[%d].%s", idx, name) }
	if strings.TrimSpace(it.Description) == "" {
		return apperrors.NewValidationError(field("description"), "description cannot be empty")
	}
	if it.GrossWeightMg <= 0 {
		return apperrors.NewValidationError(field("grossWeight"), "gross weight must be positive")
	}
	if it.NetWeightMg <= 0 || it.NetWeightMg > it.GrossWeightMg {
		return apperrors.NewValidationError(field("netWeight"), "net weight must be positive and not exceed gross weight")
	}
	if it.PurityPermille <= 0 || it.PurityPermille > 1000 {
		return apperrors.NewValidationError(field("purity"), "purity must be between 1 and 1000 parts per thousand")
	}
	return nil
}

type Loan struct {
	ID                  int64
	LoanNumber          string
	CustomerID          int64
	Metal               pricing.Metal
	Items               []PledgedItem
	PrincipalAmount     money.Paise
	InterestRateBps     int64
	TermMonths          int
	StartDate           time.Time
	DueDate             time.Time
	PricePerGram        money.Paise
	CollateralValue     money.Paise
	LTVPercent          decimal.Decimal
	PrincipalRepaid     money.Paise
	OutstandingBalance  money.Paise
	InterestPaidThrough time.Time
	Status              LoanStatus
	ClosedAt            *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type InterestPayment struct {
	ID               int64
	LoanID           int64
	ReceiptNumber    string
	Amount           money.Paise
	InterestPortion  money.Paise
	PrincipalPortion money.Paise
	Mode             PaymentMode
	PaidOn           time.Time
	PaidThrough      time.Time
	BalanceAfter     money.Paise
	Note             string
	CreatedAt        time.Time
}

type Statement struct {
	LoanID               int64       `json:"loanId"`
	AsOf                 time.Time   `json:"asOf"`
	PrincipalOutstanding money.Paise `json:"principalOutstanding"`
	AccruedInterest      money.Paise `json:"accruedInterest"`
	DaysAccrued          int64       `json:"daysAccrued"`
	TotalPayable         money.Paise `json:"totalPayable"`
}

type CreateLoanParams struct {
	CustomerID      int64
	Metal           pricing.Metal
	Items           []PledgedItem
	PrincipalAmount money.Paise
	InterestRateBps int64
	TermMonths      int
	StartDate       time.Time
}

type PaymentParams struct {
	LoanID int64
	Amount money.Paise
	Mode   PaymentMode
	PaidOn time.Time
	Note   string
}

type CloseParams struct {
	LoanID int64
	Amount money.Paise
	Mode   PaymentMode
	PaidOn time.Time
	Note   string
}

// ListFilter zero values mean "any".
type ListFilter struct {
	CustomerID int64
	Status     LoanStatus
}

// Terms are the shop's lending defaults and limits.
type Terms struct {
	DefaultInterestRateBps int64
	DefaultTermMonths      int
	MaxLTV                 map[pricing.Metal]decimal.Decimal
	OverdueGraceMonths     int
}

func NewLoanNumber(metal pricing.Metal) string {
	prefix := "GL-"
	if metal == pricing.MetalSilver {
		prefix = "SL-"
	}
	return prefix + shortID()
}

func NewReceiptNumber() string {
	return "RCPT-" + shortID()
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// NewLoan validates params, applies the shop defaults and prices the collateral.
func NewLoan(p CreateLoanParams, terms Terms, pricePerGram money.Paise, now time.Time) (*Loan, error) {
	if p.CustomerID <= 0 {
		return nil, apperrors.NewValidationError("customerId", "customer id is required")
	}
	if !p.Metal.Valid() {
		return nil, apperrors.NewValidationError("metal", "metal must be GOLD or SILVER")
	}
	if len(p.Items) == 0 {
		return nil, apperrors.NewValidationError("items", "at least one pledged item is required")
	}
	if p.PrincipalAmount <= 0 {
		return nil, apperrors.NewValidationError("principalAmount", "principal must be greater than zero")
	}
	if p.InterestRateBps < 0 {
		return nil, apperrors.NewValidationError("interestRateBps", "interest rate cannot be negative")
	}
	if p.TermMonths < 0 {
		return nil, apperrors.NewValidationError("termMonths", "term cannot be negative")
	}
	if pricePerGram <= 0 {
		return nil, fmt.Errorf("%w: no usable %s price", apperrors.ErrInvalidArgument, p.Metal)
	}

	rate := p.InterestRateBps
	if rate == 0 {
		rate = terms.DefaultInterestRateBps
	}
	term := p.TermMonths
	if term == 0 {
		term = terms.DefaultTermMonths
	}
	start := p.StartDate
	if start.IsZero() {
		start = now
	}
	start = calculator.DateOf(start)

	items := make([]PledgedItem, len(p.Items))
	var collateral money.Paise
	for i, it := range p.Items {
		it.Description = strings.TrimSpace(it.Description)
		if err := it.Validate(i); err != nil {
			return nil, err
		}
		items[i] = it
		collateral += calculator.CollateralValue(it.NetWeightMg, it.PurityPermille, pricePerGram)
	}

	ltv, err := calculator.LTVPercent(p.PrincipalAmount, collateral)
	if err != nil {
		return nil, apperrors.NewValidationError("items", "pledged items have no collateral value")
	}
	if maxLTV, ok := terms.MaxLTV[p.Metal]; ok && ltv.GreaterThan(maxLTV) {
		return nil, apperrors.NewValidationError("principalAmount",
			fmt.Sprintf("loan-to-value %s%% exceeds the %s%% limit for %s", ltv.StringFixed(2), maxLTV.String(), p.Metal))
	}

	return &Loan{
		LoanNumber:          NewLoanNumber(p.Metal),
		CustomerID:          p.CustomerID,
		Metal:               p.Metal,
		Items:               items,
		PrincipalAmount:     p.PrincipalAmount,
		InterestRateBps:     rate,
		TermMonths:          term,
		StartDate:           start,
		DueDate:             start.AddDate(0, term, 0),
		PricePerGram:        pricePerGram,
		CollateralValue:     collateral,
		LTVPercent:          ltv,
		OutstandingBalance:  p.PrincipalAmount,
		InterestPaidThrough: start,
		Status:              StatusActive,
	}, nil
}

// Statement interest keeps accruing on OVERDUE loans at the contract rate.
func (l *Loan) Statement(asOf time.Time) Statement {
	asOf = calculator.DateOf(asOf)
	st := Statement{LoanID: l.ID, AsOf: asOf}
	if l.Status == StatusClosed {
		return st
	}
	st.PrincipalOutstanding = l.OutstandingBalance
	st.DaysAccrued = calculator.DaysBetween(l.InterestPaidThrough, asOf)
	st.AccruedInterest = calculator.SimpleInterest(l.OutstandingBalance, l.InterestRateBps, l.InterestPaidThrough, asOf)
	st.TotalPayable = calculator.Outstanding(l.PrincipalAmount, l.PrincipalRepaid, st.AccruedInterest)
	return st
}

// ApplyPayment settles accrued interest first and puts the rest against principal.
// The loan is mutated only when the payment is accepted.
func (l *Loan) ApplyPayment(amount money.Paise, paidOn time.Time) (*InterestPayment, error) {
	if l.Status == StatusClosed {
		return nil, fmt.Errorf("%w: loan %s", apperrors.ErrLoanClosed, l.LoanNumber)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", apperrors.ErrInvalidPaymentAmount)
	}
	paidOn = calculator.DateOf(paidOn)
	st := l.Statement(paidOn)

	payment := &InterestPayment{LoanID: l.ID, Amount: amount, PaidOn: paidOn}
	paidThrough := l.InterestPaidThrough
	outstanding := l.OutstandingBalance

	if amount >= st.AccruedInterest {
		rest := amount - st.AccruedInterest
		if rest > outstanding {
			return nil, fmt.Errorf("%w: amount %s exceeds total payable %s",
				apperrors.ErrInvalidPaymentAmount, amount, st.TotalPayable)
		}
		payment.InterestPortion = st.AccruedInterest
		payment.PrincipalPortion = rest
		if paidOn.After(paidThrough) {
			paidThrough = paidOn
		}
		outstanding -= rest
	} else {
		payment.InterestPortion = amount
		days := calculator.DaysCovered(amount, outstanding, l.InterestRateBps)
		paidThrough = paidThrough.AddDate(0, 0, int(days))
	}

	l.PrincipalRepaid += payment.PrincipalPortion
	l.OutstandingBalance = outstanding
	l.InterestPaidThrough = paidThrough

	switch {
	case l.OutstandingBalance == 0:
		l.Status = StatusClosed
		closedAt := paidOn
		l.ClosedAt = &closedAt
	case l.Status == StatusOverdue && !l.InterestPaidThrough.Before(paidOn) && l.DueDate.After(paidOn):
		l.Status = StatusActive
	}

	payment.PaidThrough = l.InterestPaidThrough
	payment.BalanceAfter = l.OutstandingBalance
	return payment, nil
}

// IsOverdue reports whether an open loan is past its due date or has gone
// more than graceMonths without interest being paid.
func (l *Loan) IsOverdue(asOf time.Time, graceMonths int) bool {
	if l.Status == StatusClosed {
		return false
	}
	today := calculator.DateOf(asOf)
	if l.DueDate.Before(today) {
		return true
	}
	return graceMonths > 0 && l.InterestPaidThrough.AddDate(0, graceMonths, 0).Before(today)
}
