package printjobs

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

const jobColumns = `id, branch_id, product_id, status, assigned_user_id, created_by, created_at, updated_at`

// List returns a page of jobs with the total count and the most recent
// updated_at among the returned rows.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]PrintJob, int, time.Time, error) {
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM print_jobs`+where, args...).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "id ASC"
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM print_jobs%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		jobColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()

	var jobs []PrintJob
	var latest time.Time
	for rows.Next() {
		var j PrintJob
		if err := rows.Scan(&j.ID, &j.BranchID, &j.ProductID, &j.Status, &j.AssignedUserID, &j.CreatedBy, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, 0, time.Time{}, err
		}
		if j.UpdatedAt.After(latest) {
			latest = j.UpdatedAt
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return jobs, total, latest, nil
}

// Get returns one job.
func (r *Repository) Get(ctx context.Context, id int64) (PrintJob, error) {
	var j PrintJob
	err := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM print_jobs WHERE id = $1`, id).
		Scan(&j.ID, &j.BranchID, &j.ProductID, &j.Status, &j.AssignedUserID, &j.CreatedBy, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PrintJob{}, shared.ErrNotFound
	}
	if err != nil {
		return PrintJob{}, err
	}
	return j, nil
}

// Create inserts a job.
func (r *Repository) Create(ctx context.Context, j PrintJob) (PrintJob, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO print_jobs (branch_id, product_id, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+jobColumns,
		j.BranchID, j.ProductID, j.Status, j.CreatedBy).
		Scan(&j.ID, &j.BranchID, &j.ProductID, &j.Status, &j.AssignedUserID, &j.CreatedBy, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return PrintJob{}, err
	}
	return j, nil
}

// Update writes a job's status and assignment.
func (r *Repository) Update(ctx context.Context, j PrintJob) (PrintJob, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE print_jobs SET status = $2, assigned_user_id = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+jobColumns,
		j.ID, j.Status, j.AssignedUserID).
		Scan(&j.ID, &j.BranchID, &j.ProductID, &j.Status, &j.AssignedUserID, &j.CreatedBy, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PrintJob{}, shared.ErrNotFound
	}
	if err != nil {
		return PrintJob{}, err
	}
	return j, nil
}
