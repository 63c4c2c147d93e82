package dto

import (
	"time"

	"pawn-ledger/internal/domain/ledger"
)

type LedgerEntryResponse struct {
	Kind         string    `json:"kind"`
	Direction    string    `json:"direction"`
	ReferenceID  int64     `json:"referenceId"`
	Reference    string    `json:"reference"`
	CustomerID   *int64    `json:"customerId,omitempty"`
	CustomerName string    `json:"customerName,omitempty"`
	Amount       string    `json:"amount"`
	OccurredAt   time.Time `json:"occurredAt"`
	Note         string    `json:"note,omitempty"`
}

func NewLedgerEntryListResponse(entries []ledger.Entry) []LedgerEntryResponse {
	resp := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, LedgerEntryResponse{
			Kind:         string(e.Kind),
			Direction:    string(e.Direction),
			ReferenceID:  e.ReferenceID,
			Reference:    e.Reference,
			CustomerID:   e.CustomerID,
			CustomerName: e.CustomerName,
			Amount:       e.Amount.String(),
			OccurredAt:   e.OccurredAt,
			Note:         e.Note,
		})
	}
	return resp
}

type KindTotalResponse struct {
	Kind      string `json:"kind"`
	Direction string `json:"direction"`
	Count     int    `json:"count"`
	Total     string `json:"total"`
}

type LedgerSummaryResponse struct {
	From     string              `json:"from"`
	To       string              `json:"to"`
	ByKind   []KindTotalResponse `json:"byKind"`
	TotalIn  string              `json:"totalIn"`
	TotalOut string              `json:"totalOut"`
	Net      string              `json:"net"`
}

func NewLedgerSummaryResponse(s *ledger.Summary) LedgerSummaryResponse {
	resp := LedgerSummaryResponse{
		From:     formatDate(s.From),
		To:       formatDate(s.To),
		ByKind:   make([]KindTotalResponse, 0, len(s.ByKind)),
		TotalIn:  s.TotalIn.String(),
		TotalOut: s.TotalOut.String(),
		Net:      s.Net.String(),
	}
	for _, kt := range s.ByKind {
		resp.ByKind = append(resp.ByKind, KindTotalResponse{
			Kind:      string(kt.Kind),
			Direction: string(kt.Direction),
			Count:     kt.Count,
			Total:     kt.Total.String(),
		})
	}
	return resp
}
