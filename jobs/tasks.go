package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuthzIntegrity is the periodic permission catalog drift scan.
	TaskAuthzIntegrity = "authz:integrity"
	// TaskAuditPrune trims audit log rows past their retention window.
	TaskAuditPrune = "audit:prune"
)

// NewAuthzIntegrityTask constructs a drift scan task.
func NewAuthzIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskAuthzIntegrity, nil)
}

// AuditPrunePayload configures the audit retention job.
type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewAuditPruneTask constructs an audit prune task.
func NewAuditPruneTask(payload AuditPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}
