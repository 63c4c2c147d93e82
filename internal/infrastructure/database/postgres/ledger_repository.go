package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pawn-ledger/internal/domain/ledger"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"
)

// ledgerEntriesCTE flattens every money movement into one row shape. DATE
// columns are read as UTC midnight.
const ledgerEntriesCTE = `
        WITH entries AS (
            SELECT 'LOAN_DISBURSED' AS kind, l.id AS reference_id, l.loan_number AS reference, l.customer_id,
                   l.principal_amount AS amount, (l.start_date::timestamp AT TIME ZONE 'UTC') AS occurred_at, '' AS note
            FROM loans l
            UNION ALL
            SELECT 'LOAN_PAYMENT', p.id, p.receipt_number, l.customer_id,
                   p.amount, (p.paid_on::timestamp AT TIME ZONE 'UTC'), p.note
            FROM loan_payments p JOIN loans l ON l.id = p.loan_id
            UNION ALL
            SELECT 'SILVER_SALE', s.id, s.receipt_number, s.customer_id,
                   s.total_amount, s.sold_at, s.description
            FROM silver_sales s
            UNION ALL
            SELECT 'UDHARI_' || t.kind, t.id, 'UDH-' || t.id, t.customer_id,
                   t.amount, (t.txn_date::timestamp AT TIME ZONE 'UTC'), t.note
            FROM udhari_transactions t
        )`

type LedgerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func NewLedgerRepository(db DBPool, logger *slog.Logger) *LedgerRepository {
	return &LedgerRepository{db: db, logger: logger.With("component", "LedgerRepository")}
}

// ledgerWhere builds the shared filter; To is inclusive of the whole day.
func ledgerWhere(filter ledger.Filter) (string, []any) {
	args := []any{filter.From, filter.To.AddDate(0, 0, 1)}
	conds := []string{"e.occurred_at >= $1", "e.occurred_at < $2"}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("e.customer_id = $%d", len(args)))
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		args = append(args, kinds)
		conds = append(conds, fmt.Sprintf("e.kind = ANY($%d)", len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *LedgerRepository) ListEntries(ctx context.Context, filter ledger.Filter) (entries []ledger.Entry, err error) {
	defer monitoring.ObserveDBQuery("ListLedgerEntries", time.Now(), &err)

	where, args := ledgerWhere(filter)
	args = append(args, filter.Limit)
	query := ledgerEntriesCTE + `
        SELECT e.kind, e.reference_id, e.reference, e.customer_id, COALESCE(c.name, ''), e.amount, e.occurred_at, e.note
        FROM entries e LEFT JOIN customers c ON c.id = e.customer_id` + where +
		fmt.Sprintf(" ORDER BY e.occurred_at DESC, e.reference_id DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query ledger entries", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to list ledger entries")
	}
	defer rows.Close()

	entries = make([]ledger.Entry, 0)
	for rows.Next() {
		var e ledger.Entry
		if err = rows.Scan(&e.Kind, &e.ReferenceID, &e.Reference, &e.CustomerID, &e.CustomerName, &e.Amount, &e.OccurredAt, &e.Note); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan ledger entry", slog.Any("error", err))
			return nil, apperrors.WrapDatabaseError(err, "failed to list ledger entries")
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "failed to list ledger entries")
	}
	return entries, nil
}

func (r *LedgerRepository) TotalsByKind(ctx context.Context, filter ledger.Filter) (totals []ledger.KindTotal, err error) {
	defer monitoring.ObserveDBQuery("LedgerTotalsByKind", time.Now(), &err)

	where, args := ledgerWhere(filter)
	query := ledgerEntriesCTE + `
        SELECT e.kind, COUNT(*), COALESCE(SUM(e.amount), 0)::BIGINT
        FROM entries e` + where + ` GROUP BY e.kind ORDER BY e.kind`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query ledger totals", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to total ledger entries by kind")
	}
	defer rows.Close()

	totals = make([]ledger.KindTotal, 0, len(ledger.AllKinds))
	for rows.Next() {
		var kt ledger.KindTotal
		if err = rows.Scan(&kt.Kind, &kt.Count, &kt.Total); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed to total ledger entries by kind")
		}
		totals = append(totals, kt)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "failed to total ledger entries by kind")
	}
	return totals, nil
}
