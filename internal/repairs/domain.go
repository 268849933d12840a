// Package repairs manages device repair tickets.
package repairs

import "time"

// RepairTicket statuses.
const (
	StatusNew        = "NEW"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
	StatusClosed     = "CLOSED"
)

// RepairTicket is a repair job scoped to a branch.
type RepairTicket struct {
	ID             int64     `json:"id"`
	BranchID       int64     `json:"branch_id"`
	CustomerName   string    `json:"customer_name"`
	DeviceType     string    `json:"device_type"`
	IssueSummary   string    `json:"issue_summary"`
	Status         string    `json:"status"`
	AssignedUserID *int64    `json:"assigned_user_id,omitempty"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListFilter narrows and orders a ticket listing.
type ListFilter struct {
	BranchIDs []int64
	Status    string
	Query     string
	OrderBy   string
	Limit     int
	Offset    int
}
