package accounting

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

const txColumns = `id, branch_id, description, amount_cents, status, created_by, created_at, updated_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.BranchID, &t.Description, &t.AmountCents, &t.Status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// List returns a page of transactions with the total count and the most
// recent updated_at among the returned rows.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Transaction, int, time.Time, error) {
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
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounting_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "id ASC"
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM accounting_transactions%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		txColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()

	var txs []Transaction
	var latest time.Time
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, time.Time{}, err
		}
		if t.UpdatedAt.After(latest) {
			latest = t.UpdatedAt
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return txs, total, latest, nil
}

// Get returns one transaction.
func (r *Repository) Get(ctx context.Context, id int64) (Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM accounting_transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, shared.ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// Create inserts a transaction.
func (r *Repository) Create(ctx context.Context, t Transaction) (Transaction, error) {
	created, err := scanTransaction(r.pool.QueryRow(ctx, `
		INSERT INTO accounting_transactions (branch_id, description, amount_cents, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+txColumns,
		t.BranchID, t.Description, t.AmountCents, t.Status, t.CreatedBy))
	if err != nil {
		return Transaction{}, err
	}
	return created, nil
}

// Update writes a transaction's status.
func (r *Repository) Update(ctx context.Context, t Transaction) (Transaction, error) {
	updated, err := scanTransaction(r.pool.QueryRow(ctx, `
		UPDATE accounting_transactions SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+txColumns,
		t.ID, t.Status))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, shared.ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	return updated, nil
}
