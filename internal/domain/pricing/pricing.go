package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/money"
)

type Metal string

const (
	MetalGold   Metal = "GOLD"
	MetalSilver Metal = "SILVER"
)

type Source string

const (
	SourceDB      Source = "db"
	SourceCache   Source = "cache"
	SourceDefault Source = "default"
)

const (
	DefaultHistoryLimit = 30
	MaxHistoryLimit     = 365
)

var ErrCacheMiss = errors.New("price not cached")

// MetalPrice is the shop's buying rate for one gram of fine metal.
type MetalPrice struct {
	ID           int64       `json:"id,omitempty"`
	Metal        Metal       `json:"metal"`
	PricePerGram money.Paise `json:"pricePerGram"`
	EffectiveAt  time.Time   `json:"effectiveAt"`
	SetBy        string      `json:"setBy,omitempty"`
	Source       Source      `json:"source"`
}

func ParseMetal(s string) (Metal, error) {
	switch Metal(strings.ToUpper(strings.TrimSpace(s))) {
	case MetalGold:
		return MetalGold, nil
	case MetalSilver:
		return MetalSilver, nil
	}
	return "", apperrors.NewValidationError("metal", fmt.Sprintf("unknown metal %q, expected GOLD or SILVER", s))
}

func (m Metal) Valid() bool {
	return m == MetalGold || m == MetalSilver
}

type Repository interface {
	Insert(ctx context.Context, price *MetalPrice) error
	Latest(ctx context.Context, metal Metal) (*MetalPrice, error)
	History(ctx context.Context, metal Metal, limit int) ([]MetalPrice, error)
}

// Cache returns ErrCacheMiss when nothing is stored for the metal.
type Cache interface {
	GetPrice(ctx context.Context, metal Metal) (*MetalPrice, error)
	SetPrice(ctx context.Context, price *MetalPrice, ttl time.Duration) error
}
