package dto

import (
	"time"

	"pawn-ledger/internal/domain/customer"
)

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	IDProof string `json:"idProof"`
}

func (r *CreateCustomerRequest) ToParams() customer.NewCustomerParams {
	return customer.NewCustomerParams{
		Name:    r.Name,
		Phone:   r.Phone,
		Address: r.Address,
		IDProof: r.IDProof,
	}
}

// UpdateCustomerRequest fields left out of the body are not changed.
type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	IDProof *string `json:"idProof,omitempty"`
}

func (r *UpdateCustomerRequest) ToParams() customer.UpdateCustomerParams {
	return customer.UpdateCustomerParams{
		Name:    r.Name,
		Phone:   r.Phone,
		Address: r.Address,
		IDProof: r.IDProof,
	}
}

type CustomerResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address,omitempty"`
	IDProof      string    `json:"idProof,omitempty"`
	IsDelinquent bool      `json:"isDelinquent"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}
	return CustomerResponse{
		ID:           cust.ID,
		Name:         cust.Name,
		Phone:        cust.Phone,
		Address:      cust.Address,
		IDProof:      cust.IDProof,
		IsDelinquent: cust.IsDelinquent,
		Active:       cust.Active,
		CreatedAt:    cust.CreatedAt,
		UpdatedAt:    cust.UpdatedAt,
	}
}

func NewCustomerListResponse(customers []*customer.Customer) []CustomerResponse {
	resp := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		resp = append(resp, NewCustomerResponse(c))
	}
	return resp
}
