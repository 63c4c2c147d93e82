// Package ledger is a read-only daybook over every money movement in the shop.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/money"
)

type Kind string

const (
	KindLoanDisbursed  Kind = "LOAN_DISBURSED"
	KindLoanPayment    Kind = "LOAN_PAYMENT"
	KindSilverSale     Kind = "SILVER_SALE"
	KindUdhariGiven    Kind = "UDHARI_GIVEN"
	KindUdhariReceived Kind = "UDHARI_RECEIVED"
)

var AllKinds = []Kind{KindLoanDisbursed, KindLoanPayment, KindSilverSale, KindUdhariGiven, KindUdhariReceived}

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

const (
	DefaultRangeDays = 30
	DefaultLimit     = 200
	MaxLimit         = 1000
)

// Direction is from the shop's till: cash going out for disbursals and udhari given.
func (k Kind) Direction() Direction {
	switch k {
	case KindLoanDisbursed, KindUdhariGiven:
		return DirectionOut
	}
	return DirectionIn
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", apperrors.NewValidationError("kind", fmt.Sprintf("unknown transaction kind %q", s))
}

type Entry struct {
	Kind         Kind
	Direction    Direction
	ReferenceID  int64
	Reference    string
	CustomerID   *int64
	CustomerName string
	Amount       money.Paise
	OccurredAt   time.Time
	Note         string
}

// Filter bounds are inclusive calendar dates.
type Filter struct {
	From       time.Time
	To         time.Time
	CustomerID int64
	Kinds      []Kind
	Limit      int
}

type KindTotal struct {
	Kind      Kind        `json:"kind"`
	Direction Direction   `json:"direction"`
	Count     int         `json:"count"`
	Total     money.Paise `json:"total"`
}

type Summary struct {
	From     time.Time   `json:"from"`
	To       time.Time   `json:"to"`
	ByKind   []KindTotal `json:"byKind"`
	TotalIn  money.Paise `json:"totalIn"`
	TotalOut money.Paise `json:"totalOut"`
	Net      money.Paise `json:"net"`
}

type Repository interface {
	ListEntries(ctx context.Context, filter Filter) ([]Entry, error)
	TotalsByKind(ctx context.Context, filter Filter) ([]KindTotal, error)
}

// Normalize applies the default range and limit and rejects inverted ranges.
func (f Filter) Normalize(today time.Time) (Filter, error) {
	if f.To.IsZero() {
		f.To = today
	}
	if f.From.IsZero() {
		f.From = f.To.AddDate(0, 0, -DefaultRangeDays)
	}
	if f.From.After(f.To) {
		return f, apperrors.NewValidationError("from", "from must not be after to")
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	return f, nil
}

// Summarize folds per-kind totals into till totals.
func Summarize(from, to time.Time, totals []KindTotal) Summary {
	sum := Summary{From: from, To: to, ByKind: make([]KindTotal, 0, len(totals))}
	for _, kt := range totals {
		kt.Direction = kt.Kind.Direction()
		if kt.Direction == DirectionIn {
			sum.TotalIn += kt.Total
		} else {
			sum.TotalOut += kt.Total
		}
		sum.ByKind = append(sum.ByKind, kt)
	}
	sum.Net = sum.TotalIn - sum.TotalOut
	return sum
}
