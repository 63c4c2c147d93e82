package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pawn-ledger/internal/pkg/calculator"
)

type Service interface {
	ListEntries(ctx context.Context, filter Filter) ([]Entry, error)
	Summarize(ctx context.Context, filter Filter) (*Summary, error)
}

type service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

var _ Service = (*service)(nil)

func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.With("component", "ledgerService"),
		now:    time.Now,
	}
}

func (s *service) normalize(filter Filter) (Filter, error) {
	f, err := filter.Normalize(s.now())
	if err != nil {
		return f, err
	}
	f.From = calculator.DateOf(f.From)
	f.To = calculator.DateOf(f.To)
	return f, nil
}

func (s *service) ListEntries(ctx context.Context, filter Filter) ([]Entry, error) {
	f, err := s.normalize(filter)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, f)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list ledger entries", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	for i := range entries {
		entries[i].Direction = entries[i].Kind.Direction()
	}
	return entries, nil
}

func (s *service) Summarize(ctx context.Context, filter Filter) (*Summary, error) {
	f, err := s.normalize(filter)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.TotalsByKind(ctx, f)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to total ledger entries", slog.Any("error", err))
		return nil, fmt.Errorf("failed to summarise transactions: %w", err)
	}
	sum := Summarize(f.From, f.To, totals)
	return &sum, nil
}
