package customer

import (
	"strings"
	"time"

	"pawn-ledger/internal/pkg/apperrors"
)

type Customer struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	IDProof      string    `json:"idProof"`
	IsDelinquent bool      `json:"isDelinquent"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type NewCustomerParams struct {
	Name    string
	Phone   string
	Address string
	IDProof string
}

// UpdateCustomerParams carries optional changes; nil fields are left untouched.
type UpdateCustomerParams struct {
	Name    *string
	Phone   *string
	Address *string
	IDProof *string
}

type ListFilter struct {
	Query      string
	ActiveOnly bool
}

func NewCustomer(p NewCustomerParams) (*Customer, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name", "customer name cannot be empty")
	}
	phone, err := NormalizePhone(p.Phone)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Customer{
		Name:      name,
		Phone:     phone,
		Address:   strings.TrimSpace(p.Address),
		IDProof:   strings.TrimSpace(p.IDProof),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizePhone accepts a 10 digit mobile number, optionally prefixed with +91,
// and returns the bare 10 digits.
func NormalizePhone(raw string) (string, error) {
	phone := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if phone == "" {
		return "", apperrors.NewValidationError("phone", "phone number cannot be empty")
	}
	phone = strings.TrimPrefix(phone, "+91")
	if len(phone) != 10 {
		return "", apperrors.NewValidationError("phone", "phone number must have 10 digits")
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", apperrors.NewValidationError("phone", "phone number must contain only digits")
		}
	}
	return phone, nil
}

// Apply merges params into c and reports whether anything changed.
func (c *Customer) Apply(p UpdateCustomerParams) (bool, error) {
	changed := false
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return false, apperrors.NewValidationError("name", "customer name cannot be empty")
		}
		if name != c.Name {
			c.Name = name
			changed = true
		}
	}
	if p.Phone != nil {
		phone, err := NormalizePhone(*p.Phone)
		if err != nil {
			return false, err
		}
		if phone != c.Phone {
			c.Phone = phone
			changed = true
		}
	}
	if p.Address != nil {
		if address := strings.TrimSpace(*p.Address); address != c.Address {
			c.Address = address
			changed = true
		}
	}
	if p.IDProof != nil {
		if proof := strings.TrimSpace(*p.IDProof); proof != c.IDProof {
			c.IDProof = proof
			changed = true
		}
	}
	if changed {
		c.UpdatedAt = time.Now()
	}
	return changed, nil
}
