// Package printjobs manages print queue jobs.
package printjobs

import "time"

// PrintJob statuses.
const (
	StatusQueued    = "QUEUED"
	StatusStarted   = "STARTED"
	StatusCompleted = "COMPLETED"
)

// PrintJob is a queued print task scoped to a branch.
type PrintJob struct {
	ID             int64     `json:"id"`
	BranchID       int64     `json:"branch_id"`
	ProductID      *int64    `json:"product_id,omitempty"`
	Status         string    `json:"status"`
	AssignedUserID *int64    `json:"assigned_user_id,omitempty"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListFilter narrows and orders a print job listing.
type ListFilter struct {
	BranchIDs []int64
	Status    string
	OrderBy   string
	Limit     int
	Offset    int
}
