// Package money holds the integer currency and weight units used across the
// ledger. Amounts are paise, weights are milligrams; decimal strings only
// appear at the API edge.
package money

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Paise is an amount of Indian currency in its smallest unit.
type Paise int64

// Milligrams is a metal weight.
type Milligrams int64

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)

	maxUnits = decimal.NewFromInt(math.MaxInt64)
	minUnits = decimal.NewFromInt(math.MinInt64)
)

func inInt64Range(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(minUnits) && d.LessThanOrEqual(maxUnits)
}

// ParseRupees converts a rupee string such as "1250.50" into paise.
func ParseRupees(s string) (Paise, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	scaled := d.Mul(hundred)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("invalid amount %q: at most 2 decimal places allowed", s)
	}
	if !inInt64Range(scaled) {
		return 0, fmt.Errorf("invalid amount %q: out of range", s)
	}
	return Paise(scaled.IntPart()), nil
}

// FromDecimalRupees rounds a rupee value half away from zero to the nearest paisa.
func FromDecimalRupees(d decimal.Decimal) Paise {
	return Paise(d.Mul(hundred).Round(0).IntPart())
}

// FromDecimalPaise rounds a paise value half away from zero.
func FromDecimalPaise(d decimal.Decimal) Paise {
	return Paise(d.Round(0).IntPart())
}

func (p Paise) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(p))
}

func (p Paise) Rupees() decimal.Decimal {
	return decimal.New(int64(p), -2)
}

func (p Paise) String() string {
	return p.Rupees().StringFixed(2)
}

// ParseGrams converts a gram string such as "12.345" into milligrams.
func ParseGrams(s string) (Milligrams, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("weight is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid weight %q: %w", s, err)
	}
	scaled := d.Mul(thousand)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("invalid weight %q: at most 3 decimal places allowed", s)
	}
	if !inInt64Range(scaled) {
		return 0, fmt.Errorf("invalid weight %q: out of range", s)
	}
	return Milligrams(scaled.IntPart()), nil
}

func (m Milligrams) Grams() decimal.Decimal {
	return decimal.New(int64(m), -3)
}

func (m Milligrams) String() string {
	return m.Grams().StringFixed(3)
}
