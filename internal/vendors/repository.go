package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
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

const vendorColumns = `id, branch_id, name, contact_email, status, created_at, updated_at`

type vendorRow interface {
	Scan(dest ...any) error
}

func scanVendor(row vendorRow) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.BranchID, &v.Name, &v.ContactEmail, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, shared.ErrNotFound
	}
	if err != nil {
		return Vendor{}, err
	}
	return v, nil
}

// List returns a page of vendors with the total count and the most recent
// updated_at among the returned rows.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Vendor, int, time.Time, error) {
	where, args := buildFilter(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`+where, args...).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "id ASC"
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM vendors%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		vendorColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()

	var list []Vendor
	var latest time.Time
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, 0, time.Time{}, err
		}
		if v.UpdatedAt.After(latest) {
			latest = v.UpdatedAt
		}
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return list, total, latest, nil
}

// Get returns one vendor.
func (r *Repository) Get(ctx context.Context, id int64) (Vendor, error) {
	return scanVendor(r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
}

// Create inserts a vendor. A duplicate name maps to shared.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, v Vendor) (Vendor, error) {
	created, err := scanVendor(r.pool.QueryRow(ctx, `
		INSERT INTO vendors (branch_id, name, contact_email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+vendorColumns,
		v.BranchID, v.Name, v.ContactEmail, v.Status))
	if db.IsUniqueViolation(err) {
		return Vendor{}, shared.ErrDuplicate
	}
	if err != nil {
		return Vendor{}, err
	}
	return created, nil
}

// Update writes a vendor's editable fields and status.
func (r *Repository) Update(ctx context.Context, v Vendor) (Vendor, error) {
	updated, err := scanVendor(r.pool.QueryRow(ctx, `
		UPDATE vendors SET name = $2, contact_email = $3, status = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+vendorColumns,
		v.ID, v.Name, v.ContactEmail, v.Status))
	if db.IsUniqueViolation(err) {
		return Vendor{}, shared.ErrDuplicate
	}
	if err != nil {
		return Vendor{}, err
	}
	return updated, nil
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
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
