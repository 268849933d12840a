package catalog

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

const itemColumns = `id, branch_id, name, category, sku, price_cents, description_i18n, status, created_at, updated_at`

type itemRow interface {
	Scan(dest ...any) error
}

func scanItem(row itemRow) (Item, error) {
	var it Item
	var descriptions []byte
	err := row.Scan(&it.ID, &it.BranchID, &it.Name, &it.Category, &it.SKU, &it.PriceCents, &descriptions, &it.Status, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, shared.ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	if len(descriptions) > 0 {
		if err := json.Unmarshal(descriptions, &it.DescriptionI18n); err != nil {
			return Item{}, fmt.Errorf("decode description_i18n: %w", err)
		}
	}
	return it, nil
}

// List returns a page of items with the total count and the most recent
// updated_at among the returned rows.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Item, int, time.Time, error) {
	where, args := buildFilter(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM catalog_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "id ASC"
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM catalog_items%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		itemColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()

	var items []Item
	var latest time.Time
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, time.Time{}, err
		}
		if it.UpdatedAt.After(latest) {
			latest = it.UpdatedAt
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return items, total, latest, nil
}

// Get returns one item.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE id = $1`, id))
}

// Create inserts an item. A duplicate SKU maps to shared.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, it Item) (Item, error) {
	descriptions, err := marshalDescriptions(it.DescriptionI18n)
	if err != nil {
		return Item{}, err
	}
	created, err := scanItem(r.pool.QueryRow(ctx, `
		INSERT INTO catalog_items (branch_id, name, category, sku, price_cents, description_i18n, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING `+itemColumns,
		it.BranchID, it.Name, it.Category, it.SKU, it.PriceCents, descriptions, it.Status))
	if db.IsUniqueViolation(err) {
		return Item{}, shared.ErrDuplicate
	}
	if err != nil {
		return Item{}, err
	}
	return created, nil
}

// Update writes an item's editable fields and status.
func (r *Repository) Update(ctx context.Context, it Item) (Item, error) {
	descriptions, err := marshalDescriptions(it.DescriptionI18n)
	if err != nil {
		return Item{}, err
	}
	updated, err := scanItem(r.pool.QueryRow(ctx, `
		UPDATE catalog_items
		SET name = $2, category = $3, sku = $4, price_cents = $5, description_i18n = $6, status = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+itemColumns,
		it.ID, it.Name, it.Category, it.SKU, it.PriceCents, descriptions, it.Status))
	if db.IsUniqueViolation(err) {
		return Item{}, shared.ErrDuplicate
	}
	if err != nil {
		return Item{}, err
	}
	return updated, nil
}

func marshalDescriptions(d map[string]string) ([]byte, error) {
	if len(d) == 0 {
		return []byte("{}"), nil
	}
	out, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode description_i18n: %w", err)
	}
	return out, nil
}

func buildFilter(f ListFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if len(f.BranchIDs) > 0 {
		add("branch_id = ANY($%d)", f.BranchIDs)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Query != "" {
		add("(name ILIKE $%d OR sku ILIKE $%[1]d)", "%"+f.Query+"%")
	}
	if f.PriceMin != nil {
		add("price_cents >= $%d", *f.PriceMin)
	}
	if f.PriceMax != nil {
		add("price_cents <= $%d", *f.PriceMax)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
