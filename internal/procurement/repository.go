package procurement

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

const poColumns = `id, branch_id, vendor_name, total_cents, status, created_by, created_at, updated_at`

// List returns a page of purchase orders with the total count and the most
// recent updated_at among the returned rows.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]PurchaseOrder, int, time.Time, error) {
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
		conds = append(conds, fmt.Sprintf("vendor_name ILIKE $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "id ASC"
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM purchase_orders%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		poColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	var latest time.Time
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(&po.ID, &po.BranchID, &po.VendorName, &po.TotalCents, &po.Status, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt); err != nil {
			return nil, 0, time.Time{}, err
		}
		if po.UpdatedAt.After(latest) {
			latest = po.UpdatedAt
		}
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return orders, total, latest, nil
}

// Get returns one purchase order.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id).
		Scan(&po.ID, &po.BranchID, &po.VendorName, &po.TotalCents, &po.Status, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, shared.ErrNotFound
	}
	if err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// Create inserts a purchase order.
func (r *Repository) Create(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO purchase_orders (branch_id, vendor_name, total_cents, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+poColumns,
		po.BranchID, po.VendorName, po.TotalCents, po.Status, po.CreatedBy).
		Scan(&po.ID, &po.BranchID, &po.VendorName, &po.TotalCents, &po.Status, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// Update writes a purchase order's status.
func (r *Repository) Update(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE purchase_orders SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+poColumns,
		po.ID, po.Status).
		Scan(&po.ID, &po.BranchID, &po.VendorName, &po.TotalCents, &po.Status, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, shared.ErrNotFound
	}
	if err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}
