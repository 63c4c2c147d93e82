package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"pawn-ledger/internal/domain/customer"
	"pawn-ledger/internal/infrastructure/monitoring"
	"pawn-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const customerColumns = `id, name, phone, address, id_proof, is_delinquent, active, created_at, updated_at`

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository"),
	}
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Phone,
		&c.Address,
		&c.IDProof,
		&c.IsDelinquent,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}
	if cust.ID == 0 {
		return r.createCustomer(ctx, cust)
	}
	return r.updateCustomer(ctx, cust)
}

func (r *CustomerRepository) createCustomer(ctx context.Context, cust *customer.Customer) (err error) {
	defer monitoring.ObserveDBQuery("CreateCustomer", time.Now(), &err)

	query := `
        INSERT INTO customers (name, phone, address, id_proof, is_delinquent, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		cust.Name,
		cust.Phone,
		cust.Address,
		cust.IDProof,
		cust.IsDelinquent,
		cust.Active,
	).Scan(&cust.ID, &cust.CreatedAt, &cust.UpdatedAt)
	if err != nil {
		translated := translateDBError(err, r.logger)
		if errors.Is(translated, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert customer due to unique constraint violation", slog.String("phone", cust.Phone))
			return translated
		}
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		return apperrors.WrapDatabaseError(err, "failed to insert customer")
	}

	r.logger.InfoContext(ctx, "Customer inserted successfully", slog.Int64("customerID", cust.ID))
	return nil
}

func (r *CustomerRepository) updateCustomer(ctx context.Context, cust *customer.Customer) (err error) {
	defer monitoring.ObserveDBQuery("UpdateCustomer", time.Now(), &err)

	query := `
        UPDATE customers
        SET name = $1,
            phone = $2,
            address = $3,
            id_proof = $4,
            updated_at = NOW()
        WHERE id = $5`

	cmdTag, err := r.db.Exec(ctx, query, cust.Name, cust.Phone, cust.Address, cust.IDProof, cust.ID)
	if err != nil {
		translated := translateDBError(err, r.logger)
		if errors.Is(translated, apperrors.ErrAlreadyExists) {
			return translated
		}
		r.logger.ErrorContext(ctx, "Failed to update customer", slog.Any("error", err))
		return apperrors.WrapDatabaseError(err, "failed to update customer")
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, customer likely not found", slog.Int64("customerID", cust.ID))
		return customer.ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (c *customer.Customer, err error) {
	defer monitoring.ObserveDBQuery("FindCustomerByID", time.Now(), &err)

	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	c, err = scanCustomer(r.db.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan customer by ID", slog.Int64("customerID", customerID), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to get customer by ID")
	}
	return c, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// phonePrefix strips separators and a +91 country code from a search term.
func phonePrefix(q string) string {
	q = strings.NewReplacer(" ", "", "-", "").Replace(q)
	return strings.TrimPrefix(q, "+91")
}

func (r *CustomerRepository) FindAll(ctx context.Context, filter customer.ListFilter) ([]*customer.Customer, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ActiveOnly {
		args = append(args, true)
		conds = append(conds, fmt.Sprintf("active = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		nameArg := len(args)
		if phone := phonePrefix(q); phone != "" {
			args = append(args, escapeLike(phone)+"%")
			conds = append(conds, fmt.Sprintf(`(name ILIKE $%d ESCAPE '\' OR phone LIKE $%d ESCAPE '\')`, nameArg, len(args)))
		} else {
			conds = append(conds, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, nameArg))
		}
	}

	query := `SELECT ` + customerColumns + ` FROM customers`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to query customers")
	}
	defer rows.Close()

	customers := make([]*customer.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan customer row", slog.Any("error", err))
			return nil, apperrors.WrapDatabaseError(err, "failed to scan customer row")
		}
		customers = append(customers, c)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating customer rows", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "error iterating customer rows")
	}
	return customers, nil
}

func (r *CustomerRepository) SetDelinquencyStatus(ctx context.Context, customerID int64, isDelinquent bool) error {
	query := `UPDATE customers SET is_delinquent = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, isDelinquent, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute update delinquency status", slog.Any("error", err))
		return apperrors.WrapDatabaseError(err, "failed to update delinquency status")
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update delinquency affected zero rows, customer likely not found", slog.Int64("customerID", customerID))
		return customer.ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) SetActiveStatus(ctx context.Context, customerID int64, isActive bool) error {
	query := `UPDATE customers SET active = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, isActive, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute update active status", slog.Any("error", err))
		return apperrors.WrapDatabaseError(err, "failed to update active status")
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update active status affected zero rows, customer likely not found", slog.Int64("customerID", customerID))
		return customer.ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) HasOpenObligations(ctx context.Context, customerID int64) (bool, error) {
	query := `
        SELECT EXISTS (SELECT 1 FROM loans WHERE customer_id = $1 AND status IN ('ACTIVE', 'OVERDUE'))
            OR EXISTS (SELECT 1 FROM udhari_accounts WHERE customer_id = $1 AND outstanding_balance > 0)`

	var open bool
	if err := r.db.QueryRow(ctx, query, customerID).Scan(&open); err != nil {
		r.logger.ErrorContext(ctx, "Failed to check open obligations", slog.Int64("customerID", customerID), slog.Any("error", err))
		return false, apperrors.WrapDatabaseError(err, "failed to check open obligations")
	}
	return open, nil
}

func (r *CustomerRepository) ClearResolvedDelinquencies(ctx context.Context) ([]int64, error) {
	query := `
        UPDATE customers c
        SET is_delinquent = FALSE, updated_at = NOW()
        WHERE c.is_delinquent
          AND NOT EXISTS (SELECT 1 FROM loans l WHERE l.customer_id = c.id AND l.status = 'OVERDUE')
        RETURNING c.id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to clear resolved delinquencies", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to clear delinquencies")
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed scanning cleared customer id")
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "error iterating cleared customers")
	}
	if len(ids) > 0 {
		r.logger.InfoContext(ctx, "Cleared resolved delinquencies", slog.Int("count", len(ids)))
	}
	return ids, nil
}
