package repairs

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

const ticketColumns = `id, branch_id, customer_name, device_type, issue_summary, status, assigned_user_id, created_by, created_at, updated_at`

func scanTicket(row pgx.Row) (RepairTicket, error) {
	var t RepairTicket
	err := row.Scan(&t.ID, &t.BranchID, &t.CustomerName, &t.DeviceType, &t.IssueSummary, &t.Status, &t.AssignedUserID, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// List returns a page of tickets with the total count and the most recent
// updated_at among the returned rows.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]RepairTicket, int, time.Time, error) {
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
		conds = append(conds, fmt.Sprintf("(customer_name ILIKE $%d OR device_type ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM repair_tickets`+where, args...).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "id ASC"
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM repair_tickets%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		ticketColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()

	var tickets []RepairTicket
	var latest time.Time
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, time.Time{}, err
		}
		if t.UpdatedAt.After(latest) {
			latest = t.UpdatedAt
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return tickets, total, latest, nil
}

// Get returns one ticket.
func (r *Repository) Get(ctx context.Context, id int64) (RepairTicket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM repair_tickets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return RepairTicket{}, shared.ErrNotFound
	}
	if err != nil {
		return RepairTicket{}, err
	}
	return t, nil
}

// Create inserts a ticket.
func (r *Repository) Create(ctx context.Context, t RepairTicket) (RepairTicket, error) {
	created, err := scanTicket(r.pool.QueryRow(ctx, `
		INSERT INTO repair_tickets (branch_id, customer_name, device_type, issue_summary, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING `+ticketColumns,
		t.BranchID, t.CustomerName, t.DeviceType, t.IssueSummary, t.Status, t.CreatedBy))
	if err != nil {
		return RepairTicket{}, err
	}
	return created, nil
}

// Update writes a ticket's status and assignment.
func (r *Repository) Update(ctx context.Context, t RepairTicket) (RepairTicket, error) {
	updated, err := scanTicket(r.pool.QueryRow(ctx, `
		UPDATE repair_tickets SET status = $2, assigned_user_id = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+ticketColumns,
		t.ID, t.Status, t.AssignedUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return RepairTicket{}, shared.ErrNotFound
	}
	if err != nil {
		return RepairTicket{}, err
	}
	return updated, nil
}
