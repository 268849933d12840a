package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, branch_id, customer_name, total_cents, status, created_by, created_at, updated_at`

// List returns a page of orders with the total count and the most recent
// updated_at among the returned rows.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Order, int, time.Time, error) {
	where, args := buildFilter(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "id ASC"
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		orderColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()

	var orders []Order
	var latest time.Time
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.BranchID, &o.CustomerName, &o.TotalCents, &o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, time.Time{}, err
		}
		if o.UpdatedAt.After(latest) {
			latest = o.UpdatedAt
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return orders, total, latest, nil
}

// Get returns one order.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.BranchID, &o.CustomerName, &o.TotalCents, &o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, shared.ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// Create inserts an order.
func (r *Repository) Create(ctx context.Context, o Order) (Order, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO orders (branch_id, customer_name, total_cents, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+orderColumns,
		o.BranchID, o.CustomerName, o.TotalCents, o.Status, o.CreatedBy).
		Scan(&o.ID, &o.BranchID, &o.CustomerName, &o.TotalCents, &o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// Update writes an order's editable fields and status.
func (r *Repository) Update(ctx context.Context, o Order) (Order, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE orders SET customer_name = $2, total_cents = $3, status = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+orderColumns,
		o.ID, o.CustomerName, o.TotalCents, o.Status).
		Scan(&o.ID, &o.BranchID, &o.CustomerName, &o.TotalCents, &o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, shared.ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func buildFilter(f ListFilter) (string, []any) {
	var conds []string
	var args []any
	if len(f.BranchIDs) > 0 {
		args = append(args, f.BranchIDs)
		conds = append(conds, fmt.Sprintf("branch_id = ANY($%d)", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		conds = append(conds, fmt.Sprintf("customer_name ILIKE $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
