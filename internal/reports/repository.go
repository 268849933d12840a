package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind the metrics snapshot.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// statusTables are the only relations status counts may be computed over.
// Table names are interpolated into SQL and must never come from callers.
var statusTables = map[string]string{
	"orders":          "orders",
	"print_jobs":      "print_jobs",
	"purchase_orders": "purchase_orders",
	"repair_tickets":  "repair_tickets",
	"transactions":    "accounting_transactions",
}

// StatusCounts groups one domain's records by status within the branch scope
// and the optional creation window.
func (r *Repository) StatusCounts(ctx context.Context, domain string, branchIDs []int64, win Window) (StatusCounts, error) {
	table, ok := statusTables[domain]
	if !ok {
		return nil, fmt.Errorf("unknown metrics domain %q", domain)
	}
	where, args := scopeWhere(branchIDs, win)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT status, COUNT(*) FROM %s%s GROUP BY status`, table, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := StatusCounts{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// StockSummary aggregates the product table within the branch scope.
func (r *Repository) StockSummary(ctx context.Context, branchIDs []int64) (StockSummary, error) {
	where, args := branchWhere(branchIDs)
	var s StockSummary
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(quantity), 0) FROM products`+where, args...).
		Scan(&s.Products, &s.TotalQuantity)
	return s, err
}

// Financials sums the monetary aggregates within the branch scope and the
// optional creation window.
func (r *Repository) Financials(ctx context.Context, branchIDs []int64, win Window) (Financials, error) {
	where, args := scopeWhere(branchIDs, win)
	var f Financials
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(SUM(total_cents), 0) FROM orders`+andStatus(where, "status = 'COMPLETED'")+`),
			(SELECT COALESCE(SUM(total_cents), 0) FROM purchase_orders`+andStatus(where, "status <> 'CLOSED'")+`),
			(SELECT COALESCE(SUM(amount_cents), 0) FROM accounting_transactions`+andStatus(where, "status = 'APPROVED'")+`),
			(SELECT COALESCE(SUM(amount_cents), 0) FROM accounting_transactions`+andStatus(where, "status = 'PAID'")+`)`,
		args...).
		Scan(&f.CompletedOrderCents, &f.OpenPurchaseCents, &f.ApprovedUnpaidCents, &f.PaidTransactionCents)
	return f, err
}

// LatestUpdate returns the most recent updated_at across every metrics
// source within the branch scope. Used as the snapshot's cache validator.
func (r *Repository) LatestUpdate(ctx context.Context, branchIDs []int64) (time.Time, error) {
	where, args := branchWhere(branchIDs)
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT GREATEST(
			(SELECT MAX(updated_at) FROM orders`+where+`),
			(SELECT MAX(updated_at) FROM print_jobs`+where+`),
			(SELECT MAX(updated_at) FROM purchase_orders`+where+`),
			(SELECT MAX(updated_at) FROM repair_tickets`+where+`),
			(SELECT MAX(updated_at) FROM accounting_transactions`+where+`),
			(SELECT MAX(updated_at) FROM products`+where+`)
		)`, args...).
		Scan(&latest)
	if err != nil {
		return time.Time{}, err
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}

func branchWhere(branchIDs []int64) (string, []any) {
	if len(branchIDs) == 0 {
		return "", nil
	}
	return " WHERE branch_id = ANY($1)", []any{branchIDs}
}

func scopeWhere(branchIDs []int64, win Window) (string, []any) {
	var conds []string
	var args []any
	if len(branchIDs) > 0 {
		args = append(args, branchIDs)
		conds = append(conds, fmt.Sprintf("branch_id = ANY($%d)", len(args)))
	}
	if win.Start != nil {
		args = append(args, *win.Start)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if win.End != nil {
		args = append(args, *win.End)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func andStatus(where, cond string) string {
	if where == "" {
		return " WHERE " + cond
	}
	return where + " AND " + cond
}
