package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pawn-ledger/internal/domain/pricing"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

type PriceRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ pricing.Repository = (*PriceRepository)(nil)

func NewPriceRepository(db DBPool, logger *slog.Logger) *PriceRepository {
	return &PriceRepository{db: db, logger: logger.With("component", "PriceRepository")}
}

func (r *PriceRepository) Insert(ctx context.Context, price *pricing.MetalPrice) (err error) {
	defer monitoring.ObserveDBQuery("InsertMetalPrice", time.Now(), &err)

	sql := `
        INSERT INTO metal_prices (metal, price_per_gram, effective_at, set_by)
        VALUES ($1, $2, $3, $4)
        RETURNING id`

	err = r.db.QueryRow(ctx, sql, price.Metal, price.PricePerGram, price.EffectiveAt, price.SetBy).Scan(&price.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert metal price", slog.String("metal", string(price.Metal)), slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *PriceRepository) Latest(ctx context.Context, metal pricing.Metal) (p *pricing.MetalPrice, err error) {
	defer monitoring.ObserveDBQuery("LatestMetalPrice", time.Now(), &err)

	query := `
        SELECT id, metal, price_per_gram, effective_at, set_by
        FROM metal_prices
        WHERE metal = $1
        ORDER BY effective_at DESC, id DESC
        LIMIT 1`

	var price pricing.MetalPrice
	err = r.db.QueryRow(ctx, query, metal).Scan(&price.ID, &price.Metal, &price.PricePerGram, &price.EffectiveAt, &price.SetBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query latest metal price", slog.String("metal", string(metal)), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to load latest price")
	}
	return &price, nil
}

// History returns the newest limit prices for metal, newest first.
func (r *PriceRepository) History(ctx context.Context, metal pricing.Metal, limit int) ([]pricing.MetalPrice, error) {
	query := `
        SELECT id, metal, price_per_gram, effective_at, set_by
        FROM metal_prices
        WHERE metal = $1
        ORDER BY effective_at DESC, id DESC
        LIMIT $2`

	rows, err := r.db.Query(ctx, query, metal, limit)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query metal price history", slog.String("metal", string(metal)), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to load price history")
	}
	defer rows.Close()

	history := make([]pricing.MetalPrice, 0, limit)
	for rows.Next() {
		var p pricing.MetalPrice
		if err := rows.Scan(&p.ID, &p.Metal, &p.PricePerGram, &p.EffectiveAt, &p.SetBy); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed to load price history")
		}
		p.Source = pricing.SourceDB
		history = append(history, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "failed to load price history")
	}
	return history, nil
}
