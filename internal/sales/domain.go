// Package sales manages customer orders through their lifecycle.
package sales

import "time"

// Order statuses.
const (
	StatusNew       = "NEW"
	StatusApproved  = "APPROVED"
	StatusFulfilled = "FULFILLED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Order is a customer order scoped to a branch.
type Order struct {
	ID           int64     `json:"id"`
	BranchID     int64     `json:"branch_id"`
	CustomerName string    `json:"customer_name"`
	TotalCents   int64     `json:"total_cents"`
	Status       string    `json:"status"`
	CreatedBy    int64     `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListFilter narrows and orders an order listing.
type ListFilter struct {
	BranchIDs []int64
	Status    string
	Query     string
	OrderBy   string
	Limit     int
	Offset    int
}
