package dto

import (
	"time"

	"pawn-ledger/internal/domain/pricing"
	"pawn-ledger/internal/pkg/money"
)

type SetPriceRequest struct {
	PricePerGram string `json:"pricePerGram"`
}

func (r *SetPriceRequest) ToPaise() (money.Paise, error) {
	return parseAmount("pricePerGram", r.PricePerGram)
}

type PriceResponse struct {
	Metal        string    `json:"metal"`
	PricePerGram string    `json:"pricePerGram"`
	EffectiveAt  time.Time `json:"effectiveAt"`
	SetBy        string    `json:"setBy,omitempty"`
	Source       string    `json:"source"`
}

func NewPriceResponse(p *pricing.MetalPrice) PriceResponse {
	return PriceResponse{
		Metal:        string(p.Metal),
		PricePerGram: p.PricePerGram.String(),
		EffectiveAt:  p.EffectiveAt,
		SetBy:        p.SetBy,
		Source:       string(p.Source),
	}
}

func NewPriceListResponse(prices []*pricing.MetalPrice) []PriceResponse {
	resp := make([]PriceResponse, 0, len(prices))
	for _, p := range prices {
		resp = append(resp, NewPriceResponse(p))
	}
	return resp
}

func NewPriceHistoryResponse(prices []pricing.MetalPrice) []PriceResponse {
	resp := make([]PriceResponse, 0, len(prices))
	for i := range prices {
		resp = append(resp, NewPriceResponse(&prices[i]))
	}
	return resp
}
