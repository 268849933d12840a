package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence for audit entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists one entry.
func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	permsJSON, err := json.Marshal(entry.PermsSnapshot)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, perms_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, metaJSON, permsJSON)
	return err
}

// List returns entries newest-first with the total count and the most
// recent created_at among the returned page.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Entry, int, time.Time, error) {
	where, args := buildFilter(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, time.Time{}, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = shared.DefaultLimit
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT id, actor_id, action, entity, entity_id, meta, perms_snapshot, created_at
		FROM audit_logs%s
		ORDER BY id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	defer rows.Close()

	var entries []Entry
	var latest time.Time
	for rows.Next() {
		var e Entry
		var meta, perms []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &meta, &perms, &e.CreatedAt); err != nil {
			return nil, 0, time.Time{}, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, 0, time.Time{}, err
			}
		}
		if len(perms) > 0 {
			if err := json.Unmarshal(perms, &e.PermsSnapshot); err != nil {
				return nil, 0, time.Time{}, err
			}
		}
		if e.CreatedAt.After(latest) {
			latest = e.CreatedAt
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, time.Time{}, err
	}
	return entries, total, latest, nil
}

func buildFilter(filter ListFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ActorID != 0 {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.Entity != "" {
		add("entity = $%d", filter.Entity)
	}
	if filter.EntityID != "" {
		add("entity_id = $%d", filter.EntityID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
