package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"pawn-ledger/internal/api/handler/dto"
	"pawn-ledger/internal/domain/customer"
	"pawn-ledger/internal/pkg/apperrors"
)

type CustomerHandler struct {
	service customer.CustomerService
	logger  *slog.Logger
}

func NewCustomerHandler(s customer.CustomerService, l *slog.Logger) *CustomerHandler {
	if s == nil {
		panic("customer service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &CustomerHandler{
		service: s,
		logger:  l.With("component", "CustomerHandler"),
	}
}

// CreateCustomer handles POST /customers
// @Summary Create a new customer
// @Description Registers a customer. Phone must be a 10 digit mobile number and unique.
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body dto.CreateCustomerRequest true "Customer creation request"
// @Success 201 {object} dto.CustomerResponse "Customer successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 409 {object} dto.ErrorResponse "Phone already registered"
// @Failure 500 {object} dto.ErrorResponse "Internal server error during creation"
// @Router /customers [post]
// @Security BearerAuth
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	created, err := h.service.CreateNewCustomer(r.Context(), req.ToParams())
	if err != nil {
		h.logger.WarnContext(r.Context(), "Service failed to create customer", slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewCustomerResponse(created))
}

// ListCustomers handles GET /customers
// @Summary List customers
// @Description Lists customers, optionally filtered by a name or phone search and active flag.
// @Tags Customers
// @Produce json
// @Param q query string false "Name or phone fragment"
// @Param active query bool false "Only active customers"
// @Success 200 {array} dto.CustomerResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /customers [get]
// @Security BearerAuth
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	filter := customer.ListFilter{Query: r.URL.Query().Get("q")}
	if s := r.URL.Query().Get("active"); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			respondError(w, apperrors.NewValidationError("active", "active must be true or false"))
			return
		}
		filter.ActiveOnly = active
	}

	customers, err := h.service.ListCustomers(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewCustomerListResponse(customers))
}

// GetCustomer handles GET /customers/{customerID}
// @Summary Get customer by ID
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID"
// @Success 200 {object} dto.CustomerResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID format"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /customers/{customerID} [get]
// @Security BearerAuth
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := idFromURL(r, "customerID")
	if err != nil {
		respondError(w, err)
		return
	}

	cust, err := h.service.GetCustomer(r.Context(), customerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(cust))
}

// UpdateCustomer handles PUT /customers/{customerID}
// @Summary Update customer details
// @Description Only fields present in the body are changed.
// @Tags Customers
// @Accept json
// @Produce json
// @Param customerID path int true "Customer ID"
// @Param request body dto.UpdateCustomerRequest true "Changes"
// @Success 200 {object} dto.CustomerResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Phone already registered"
// @Router /customers/{customerID} [put]
// @Security BearerAuth
func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := idFromURL(r, "customerID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.UpdateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	updated, err := h.service.UpdateCustomerDetails(r.Context(), customerID, req.ToParams())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(updated))
}

// DeactivateCustomer handles DELETE /customers/{customerID}
// @Summary Deactivate a customer
// @Description Customers are never removed; they are marked inactive.
// @Tags Customers
// @Param customerID path int true "Customer ID"
// @Success 204 "Customer deactivated"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Customer has open loans"
// @Router /customers/{customerID} [delete]
// @Security BearerAuth
func (h *CustomerHandler) DeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// ReactivateCustomer handles PUT /customers/{customerID}/reactivate
// @Summary Reactivate a customer
// @Tags Customers
// @Param customerID path int true "Customer ID"
// @Success 204 "Customer reactivated"
// @Failure 404 {object} dto.ErrorResponse
// @Router /customers/{customerID}/reactivate [put]
// @Security BearerAuth
func (h *CustomerHandler) ReactivateCustomer(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *CustomerHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	customerID, err := idFromURL(r, "customerID")
	if err != nil {
		respondError(w, err)
		return
	}

	if active {
		err = h.service.ReactivateCustomer(r.Context(), customerID)
	} else {
		err = h.service.DeactivateCustomer(r.Context(), customerID)
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to change customer status",
			slog.Int64("customerID", customerID), slog.Bool("active", active), slog.Any("error", err))
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
