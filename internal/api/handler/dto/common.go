package dto

import (
	"time"

	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/money"
)

// DateLayout is the calendar date format used in requests, responses and query strings.
const DateLayout = "2006-01-02"

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// ParseDate returns the zero time for an empty string.
func ParseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(field, "invalid date format (use YYYY-MM-DD)")
	}
	return t, nil
}

func parseAmount(field, s string) (money.Paise, error) {
	p, err := money.ParseRupees(s)
	if err != nil {
		return 0, apperrors.NewValidationError(field, err.Error())
	}
	return p, nil
}

// parseOptionalAmount treats an empty string as zero.
func parseOptionalAmount(field, s string) (money.Paise, error) {
	if s == "" {
		return 0, nil
	}
	return parseAmount(field, s)
}

func parseWeight(field, s string) (money.Milligrams, error) {
	w, err := money.ParseGrams(s)
	if err != nil {
		return 0, apperrors.NewValidationError(field, err.Error())
	}
	return w, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
