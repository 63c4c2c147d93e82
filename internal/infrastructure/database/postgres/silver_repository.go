package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pawn-ledger/internal/domain/silver"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const silverSaleColumns = `id, receipt_number, customer_id, description, weight_mg, purity_permille, rate_per_gram,
        making_charges, total_amount, mode, sold_at, created_at`

type SilverSaleRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ silver.Repository = (*SilverSaleRepository)(nil)

func NewSilverSaleRepository(db DBPool, logger *slog.Logger) *SilverSaleRepository {
	return &SilverSaleRepository{db: db, logger: logger.With("component", "SilverSaleRepository")}
}

func scanSilverSale(row pgx.Row) (*silver.Sale, error) {
	var s silver.Sale
	err := row.Scan(&s.ID, &s.ReceiptNumber, &s.CustomerID, &s.Description, &s.WeightMg, &s.PurityPermille,
		&s.RatePerGram, &s.MakingCharges, &s.TotalAmount, &s.Mode, &s.SoldAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SilverSaleRepository) Create(ctx context.Context, sale *silver.Sale) (err error) {
	defer monitoring.ObserveDBQuery("CreateSilverSale", time.Now(), &err)

	sql := `
        INSERT INTO silver_sales (receipt_number, customer_id, description, weight_mg, purity_permille,
            rate_per_gram, making_charges, total_amount, mode, sold_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        RETURNING id, created_at`

	err = r.db.QueryRow(ctx, sql, sale.ReceiptNumber, sale.CustomerID, sale.Description, sale.WeightMg, sale.PurityPermille,
		sale.RatePerGram, sale.MakingCharges, sale.TotalAmount, sale.Mode, sale.SoldAt).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert silver sale", slog.String("receipt", sale.ReceiptNumber), slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *SilverSaleRepository) GetByID(ctx context.Context, saleID int64) (*silver.Sale, error) {
	query := `SELECT ` + silverSaleColumns + ` FROM silver_sales WHERE id = $1`

	sale, err := scanSilverSale(r.db.QueryRow(ctx, query, saleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get silver sale", slog.Int64("saleID", saleID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to get silver sale")
	}
	return sale, nil
}

// List bounds are calendar dates; To includes the whole day.
func (r *SilverSaleRepository) List(ctx context.Context, filter silver.ListFilter) ([]*silver.Sale, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("sold_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.AddDate(0, 0, 1))
		conds = append(conds, fmt.Sprintf("sold_at < $%d", len(args)))
	}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	query := `SELECT ` + silverSaleColumns + ` FROM silver_sales`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY sold_at DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query silver sales", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to list silver sales")
	}
	defer rows.Close()

	sales := make([]*silver.Sale, 0)
	for rows.Next() {
		sale, err := scanSilverSale(rows)
		if err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed to list silver sales")
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "failed to list silver sales")
	}
	return sales, nil
}
