package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pawn-ledger/internal/api/handler/dto"
	"pawn-ledger/internal/domain/loan"
	"pawn-ledger/internal/pkg/apperrors"
)

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
	now     func() time.Time
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
		now:     time.Now,
	}
}

// CreateLoan handles the creation of a new gold or silver loan.
//
// @Summary Create a new loan
// @Description Pledges items against a principal. The collateral is valued at the current price and the loan-to-value ratio is capped per metal.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan creation request payload"
// @Success 201 {object} dto.LoanResponse "Loan successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	params, err := req.ToParams()
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.service.CreateLoan(r.Context(), params)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to create loan", slog.Int64("customerID", params.CustomerID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created))
}

// ListLoans handles GET /loans
// @Summary List loans
// @Tags Loans
// @Produce json
// @Param customerId query int false "Filter by customer"
// @Param status query string false "ACTIVE, OVERDUE or CLOSED"
// @Success 200 {array} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryInt64(r, "customerId")
	if err != nil {
		respondError(w, err)
		return
	}
	h.listLoans(w, r, customerID)
}

// ListCustomerLoans handles GET /customers/{customerID}/loans
// @Summary List a customer's loans
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID"
// @Param status query string false "ACTIVE, OVERDUE or CLOSED"
// @Success 200 {array} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /customers/{customerID}/loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListCustomerLoans(w http.ResponseWriter, r *http.Request) {
	customerID, err := idFromURL(r, "customerID")
	if err != nil {
		respondError(w, err)
		return
	}
	h.listLoans(w, r, customerID)
}

func (h *LoanHandler) listLoans(w http.ResponseWriter, r *http.Request, customerID int64) {
	filter := loan.ListFilter{CustomerID: customerID}
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := loan.ParseStatus(s)
		if err != nil {
			respondError(w, err)
			return
		}
		filter.Status = status
	}

	loans, err := h.service.ListLoans(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanListResponse(loans))
}

// GetLoan retrieves the details of a specific loan.
//
// @Summary Retrieve loan details
// @Description Returns the loan with its pledged items.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.LoanResponse "Loan details successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	l, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(l))
}

// GetStatement handles GET /loans/{loanID}/statement
// @Summary Interest statement
// @Description Accrued interest and total payable as of a date (default today).
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param asOf query string false "YYYY-MM-DD"
// @Success 200 {object} dto.StatementResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /loans/{loanID}/statement [get]
// @Security BearerAuth
func (h *LoanHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}
	asOf, err := dto.ParseDate("asOf", r.URL.Query().Get("asOf"))
	if err != nil {
		respondError(w, err)
		return
	}
	if asOf.IsZero() {
		asOf = h.now()
	}

	st, err := h.service.GetStatement(r.Context(), loanID, asOf)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewStatementResponse(st))
}

// RecordPayment handles POST /loans/{loanID}/payments
// @Summary Record an interest payment
// @Description The amount settles accrued interest first and the remainder reduces principal.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.PaymentRequest true "Payment"
// @Success 201 {object} dto.PaymentResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid amount"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan already closed"
// @Router /loans/{loanID}/payments [post]
// @Security BearerAuth
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	params, ok := h.paymentParams(w, r)
	if !ok {
		return
	}
	payment, err := h.service.RecordPayment(r.Context(), params)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Payment rejected", slog.Int64("loanID", params.LoanID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewPaymentResponse(payment))
}

// CloseLoan handles POST /loans/{loanID}/close
// @Summary Close a loan
// @Description The amount must equal the total payable on the payment date. Pledged items are released.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.PaymentRequest true "Closing payment"
// @Success 200 {object} dto.PaymentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /loans/{loanID}/close [post]
// @Security BearerAuth
func (h *LoanHandler) CloseLoan(w http.ResponseWriter, r *http.Request) {
	params, ok := h.paymentParams(w, r)
	if !ok {
		return
	}
	payment, err := h.service.CloseLoan(r.Context(), loan.CloseParams(params))
	if err != nil {
		h.logger.WarnContext(r.Context(), "Close rejected", slog.Int64("loanID", params.LoanID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPaymentResponse(payment))
}

func (h *LoanHandler) paymentParams(w http.ResponseWriter, r *http.Request) (loan.PaymentParams, bool) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return loan.PaymentParams{}, false
	}
	var req dto.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return loan.PaymentParams{}, false
	}
	params, err := req.ToParams(loanID)
	if err != nil {
		respondError(w, err)
		return loan.PaymentParams{}, false
	}
	return params, true
}

// ListPayments handles GET /loans/{loanID}/payments
// @Summary List payments on a loan
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {array} dto.PaymentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /loans/{loanID}/payments [get]
// @Security BearerAuth
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}
	payments, err := h.service.ListPayments(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPaymentListResponse(payments))
}
