package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pawn-ledger/internal/event"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"
	"pawn-ledger/internal/pkg/money"
)

type Service interface {
	CurrentPrice(ctx context.Context, metal Metal) (*MetalPrice, error)
	CurrentPrices(ctx context.Context) ([]*MetalPrice, error)
	SetPrice(ctx context.Context, metal Metal, pricePerGram money.Paise, setBy string) (*MetalPrice, error)
	History(ctx context.Context, metal Metal, limit int) ([]MetalPrice, error)
}

type Defaults map[Metal]money.Paise

type service struct {
	repo     Repository
	cache    Cache
	pub      event.EventPublisher
	defaults Defaults
	cacheTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

var _ Service = (*service)(nil)

// NewService wires the price lookup chain. cache may be nil when Redis is not configured.
func NewService(repo Repository, cache Cache, pub event.EventPublisher, defaults Defaults, cacheTTL time.Duration, logger *slog.Logger) Service {
	if pub == nil {
		pub = event.NewNopPublisher(logger)
	}
	return &service{
		repo:     repo,
		cache:    cache,
		pub:      pub,
		defaults: defaults,
		cacheTTL: cacheTTL,
		logger:   logger.With("component", "pricingService"),
		now:      time.Now,
	}
}

func (s *service) CurrentPrice(ctx context.Context, metal Metal) (*MetalPrice, error) {
	if !metal.Valid() {
		return nil, apperrors.NewValidationError("metal", fmt.Sprintf("unknown metal %q", metal))
	}
	logCtx := s.logger.With(slog.String("metal", string(metal)))

	if s.cache != nil {
		cached, err := s.cache.GetPrice(ctx, metal)
		switch {
		case err == nil:
			cached.Source = SourceCache
			monitoring.RecordPriceLookup(string(metal), string(SourceCache))
			return cached, nil
		case errors.Is(err, ErrCacheMiss):
			logCtx.DebugContext(ctx, "Price cache miss")
		default:
			logCtx.WarnContext(ctx, "Price cache lookup failed, falling back to database", slog.Any("error", err))
		}
	}

	latest, err := s.repo.Latest(ctx, metal)
	switch {
	case err == nil:
		latest.Source = SourceDB
		s.warmCache(ctx, latest)
		monitoring.RecordPriceLookup(string(metal), string(SourceDB))
		return latest, nil
	case errors.Is(err, apperrors.ErrNotFound):
		logCtx.InfoContext(ctx, "No stored price, using configured default")
	default:
		logCtx.ErrorContext(ctx, "Price lookup failed, using configured default", slog.Any("error", err))
	}

	monitoring.RecordPriceLookup(string(metal), string(SourceDefault))
	return &MetalPrice{
		Metal:        metal,
		PricePerGram: s.defaults[metal],
		EffectiveAt:  s.now().UTC(),
		Source:       SourceDefault,
	}, nil
}

func (s *service) CurrentPrices(ctx context.Context) ([]*MetalPrice, error) {
	prices := make([]*MetalPrice, 0, 2)
	for _, metal := range []Metal{MetalGold, MetalSilver} {
		p, err := s.CurrentPrice(ctx, metal)
		if err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, nil
}

func (s *service) SetPrice(ctx context.Context, metal Metal, pricePerGram money.Paise, setBy string) (*MetalPrice, error) {
	if !metal.Valid() {
		return nil, apperrors.NewValidationError("metal", fmt.Sprintf("unknown metal %q", metal))
	}
	if pricePerGram <= 0 {
		return nil, apperrors.NewValidationError("pricePerGram", "price must be greater than zero")
	}
	logCtx := s.logger.With(slog.String("metal", string(metal)), slog.String("price", pricePerGram.String()))

	price := &MetalPrice{
		Metal:        metal,
		PricePerGram: pricePerGram,
		EffectiveAt:  s.now().UTC(),
		SetBy:        strings.TrimSpace(setBy),
	}
	if err := s.repo.Insert(ctx, price); err != nil {
		logCtx.ErrorContext(ctx, "Failed to store metal price", slog.Any("error", err))
		return nil, fmt.Errorf("failed to store %s price: %w", metal, err)
	}
	price.Source = SourceDB
	s.warmCache(ctx, price)

	if err := s.pub.PublishPriceUpdated(ctx, event.PricePayload{
		Metal:        string(metal),
		PricePerGram: int64(pricePerGram),
		EffectiveAt:  price.EffectiveAt,
		SetBy:        price.SetBy,
	}); err != nil {
		logCtx.ErrorContext(ctx, "Price stored, but FAILED to publish price update event", slog.Any("error", err))
	}

	logCtx.InfoContext(ctx, "Metal price updated")
	return price, nil
}

func (s *service) History(ctx context.Context, metal Metal, limit int) ([]MetalPrice, error) {
	if !metal.Valid() {
		return nil, apperrors.NewValidationError("metal", fmt.Sprintf("unknown metal %q", metal))
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	history, err := s.repo.History(ctx, metal, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load price history", slog.String("metal", string(metal)), slog.Any("error", err))
		return nil, fmt.Errorf("failed to load %s price history: %w", metal, err)
	}
	return history, nil
}

func (s *service) warmCache(ctx context.Context, price *MetalPrice) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetPrice(ctx, price, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "Failed to write price cache", slog.String("metal", string(price.Metal)), slog.Any("error", err))
	}
}
