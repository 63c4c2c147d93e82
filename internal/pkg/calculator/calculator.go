// Package calculator implements the shop's pawn-loan and sale arithmetic.
package calculator

import (
	"fmt"
	"time"

	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/money"

	"github.com/shopspring/decimal"
)

// DaysPerMonth is the month length used for pro-rata interest.
const DaysPerMonth = 30

var (
	bpsDivisor     = decimal.NewFromInt(10_000)
	permille       = decimal.NewFromInt(1000)
	hundred        = decimal.NewFromInt(100)
	monthDivisor   = decimal.NewFromInt(DaysPerMonth)
	dailyRateScale = bpsDivisor.Mul(monthDivisor)
)

// DateOf returns midnight UTC of t's calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from from to to; zero when to is not after from.
func DaysBetween(from, to time.Time) int64 {
	days := int64(DateOf(to).Sub(DateOf(from)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DailyInterest is the unrounded interest in paise accruing per day.
func DailyInterest(principal money.Paise, monthlyRateBps int64) decimal.Decimal {
	if principal <= 0 || monthlyRateBps <= 0 {
		return decimal.Zero
	}
	return principal.Decimal().Mul(decimal.NewFromInt(monthlyRateBps)).Div(dailyRateScale)
}

// SimpleInterest accrues P * r * days/30 between two dates.
func SimpleInterest(principal money.Paise, monthlyRateBps int64, from, to time.Time) money.Paise {
	days := DaysBetween(from, to)
	if days == 0 {
		return 0
	}
	return InterestForDays(principal, monthlyRateBps, days)
}

func InterestForDays(principal money.Paise, monthlyRateBps int64, days int64) money.Paise {
	if days <= 0 {
		return 0
	}
	daily := DailyInterest(principal, monthlyRateBps)
	return money.FromDecimalPaise(daily.Mul(decimal.NewFromInt(days)))
}

// DaysCovered is how many whole days of interest amount pays for.
func DaysCovered(amount, principal money.Paise, monthlyRateBps int64) int64 {
	daily := DailyInterest(principal, monthlyRateBps)
	if daily.IsZero() || amount <= 0 {
		return 0
	}
	return amount.Decimal().Div(daily).Floor().IntPart()
}

func FineWeight(netMg money.Milligrams, purityPermille int) money.Milligrams {
	d := decimal.NewFromInt(int64(netMg)).Mul(decimal.NewFromInt(int64(purityPermille))).Div(permille)
	return money.Milligrams(d.Round(0).IntPart())
}

// CollateralValue prices the fine metal content of an item.
func CollateralValue(netMg money.Milligrams, purityPermille int, pricePerGram money.Paise) money.Paise {
	grams := decimal.NewFromInt(int64(netMg)).Div(permille)
	purity := decimal.NewFromInt(int64(purityPermille)).Div(permille)
	return money.FromDecimalPaise(grams.Mul(purity).Mul(pricePerGram.Decimal()))
}

// LTVPercent returns principal as a percentage of collateral value, to 2 decimals.
func LTVPercent(principal, collateralValue money.Paise) (decimal.Decimal, error) {
	if collateralValue <= 0 {
		return decimal.Zero, fmt.Errorf("%w: collateral value must be positive", apperrors.ErrInvalidArgument)
	}
	return principal.Decimal().Div(collateralValue.Decimal()).Mul(hundred).Round(2), nil
}

func SaleAmount(weightMg money.Milligrams, ratePerGram, makingCharges money.Paise) money.Paise {
	grams := decimal.NewFromInt(int64(weightMg)).Div(permille)
	return money.FromDecimalPaise(grams.Mul(ratePerGram.Decimal())) + makingCharges
}

func Outstanding(principal, principalRepaid, accruedInterest money.Paise) money.Paise {
	out := principal - principalRepaid + accruedInterest
	if out < 0 {
		return 0
	}
	return out
}
