package inventory

import (
	"context"
	"encoding/json"
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

const productColumns = `id, branch_id, name, sku, quantity, description_i18n, created_at, updated_at`

type productRow interface {
	Scan(dest ...any) error
}

func scanProduct(row productRow) (Product, error) {
	var p Product
	var descriptions []byte
	err := row.Scan(&p.ID, &p.BranchID, &p.Name, &p.SKU, &p.Quantity, &descriptions, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	if len(descriptions) > 0 {
		if err := json.Unmarshal(descriptions, &p.DescriptionI18n); err != nil {
			return Product{}, fmt.Errorf("decode description_i18n: %w", err)
		}
	}
	return p, nil
}

// List returns a page of products with the total count and the most recent
// updated_at among the returned rows.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Product, int, time.Time, error) {
	where, args := buildFilter(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "id ASC"
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()

	var products []Product
	var latest time.Time
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, time.Time{}, err
		}
		if p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return products, total, latest, nil
}

// Get returns one product.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// Create inserts a product. A duplicate SKU maps to shared.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, p Product) (Product, error) {
	descriptions, err := json.Marshal(orEmpty(p.DescriptionI18n))
	if err != nil {
		return Product{}, fmt.Errorf("encode description_i18n: %w", err)
	}
	created, err := scanProduct(r.pool.QueryRow(ctx, `
		INSERT INTO products (branch_id, name, sku, quantity, description_i18n, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+productColumns,
		p.BranchID, p.Name, p.SKU, p.Quantity, descriptions))
	if db.IsUniqueViolation(err) {
		return Product{}, shared.ErrDuplicate
	}
	if err != nil {
		return Product{}, err
	}
	return created, nil
}

// AdjustQuantity applies a signed delta atomically. The update is guarded so
// the stored quantity can never go below zero under concurrent adjustments.
func (r *Repository) AdjustQuantity(ctx context.Context, id, delta int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `
		UPDATE products SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING `+productColumns,
		id, delta))
	if errors.Is(err, shared.ErrNotFound) {
		// Row missing or the guard rejected the delta; disambiguate.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Product{}, getErr
		}
		return Product{}, shared.ValidationErrorf("quantity cannot go below zero")
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func orEmpty(d map[string]string) map[string]string {
	if d == nil {
		return map[string]string{}
	}
	return d
}

func buildFilter(f ListFilter) (string, []any) {
	var conds []string
	var args []any
	if len(f.BranchIDs) > 0 {
		args = append(args, f.BranchIDs)
		conds = append(conds, fmt.Sprintf("branch_id = ANY($%d)", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%[1]d)", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
