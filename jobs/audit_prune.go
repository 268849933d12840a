package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultRetentionDays = 365

// AuditPruneJob deletes audit log rows older than the retention window.
type AuditPruneJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditPruneJob constructs the retention job.
func NewAuditPruneJob(pool *pgxpool.Pool, logger *slog.Logger) *AuditPruneJob {
	return &AuditPruneJob{pool: pool, logger: logger}
}

// Handle processes TaskAuditPrune tasks.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditPrunePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = defaultRetentionDays
	}

	tag, err := j.pool.Exec(ctx,
		`DELETE FROM audit_logs WHERE created_at < NOW() - $1 * INTERVAL '1 day'`,
		payload.RetentionDays)
	if err != nil {
		return err
	}
	j.logger.Info("pruned audit logs",
		slog.Int("retention_days", payload.RetentionDays),
		slog.Int64("deleted", tag.RowsAffected()))
	return nil
}
